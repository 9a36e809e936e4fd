package s3

import (
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSink("s3", NewS3Sink)

	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "s3",
		Type:        core.ConnectorTypeSink,
		Description: "Amazon S3 or S3 compatible object storage",
		Settings: map[string]string{
			"sink.bucket":   "bucket name",
			"sink.prefix":   "key prefix",
			"sink.region":   "bucket region, us-east-1 when unset",
			"sink.endpoint": "custom endpoint for S3 compatible stores; uses path-style addressing",
		},
	})
}
