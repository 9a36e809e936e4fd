package jsonl

import (
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource("jsonl", NewJSONLSource)

	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "jsonl",
		Type:        core.ConnectorTypeSource,
		Description: "JSON objects, one per line or in a single array, from a file or http(s) URL",
		Settings: map[string]string{
			"path":        "local file path",
			"url":         "http(s) URL, fetched with retries",
			"format":      "lines or array; detected when unset",
			"flatten":     "lift nested objects into dotted columns",
			"compression": "codec override; defaults to the file suffix",
			"table_name":  "table name; defaults to the file stem",
		},
	})
}
