package local

import (
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSink("local", NewLocalSink)

	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "local",
		Type:        core.ConnectorTypeSink,
		Description: "Files under a local directory, written atomically",
		Settings: map[string]string{
			"sink.directory": "root directory",
			"sink.prefix":    "key prefix",
		},
	})
}
