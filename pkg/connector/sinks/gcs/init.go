package gcs

import (
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSink("gcs", NewGCSSink)

	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "gcs",
		Type:        core.ConnectorTypeSink,
		Description: "Google Cloud Storage bucket",
		Settings: map[string]string{
			"sink.bucket":           "bucket name",
			"sink.prefix":           "object name prefix",
			"sink.credentials_file": "service account key file, application default credentials when unset",
			"sink.endpoint":         "custom endpoint, used without authentication",
		},
	})
}
