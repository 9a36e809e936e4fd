package columnar

import (
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource("columnar", NewColumnarSource)

	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "columnar",
		Type:        core.ConnectorTypeSource,
		Description: "Arrow IPC, Parquet or Avro file from a local path or http(s) URL",
		Settings: map[string]string{
			"path":       "local file path",
			"url":        "http(s) URL, fetched with retries",
			"format":     "arrow, arrow_stream, parquet or avro; detected from the extension when unset",
			"table_name": "table name; overrides the name stored in the file",
		},
	})
}
