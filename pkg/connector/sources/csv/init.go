package csv

import (
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource("csv", NewCSVSource)

	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "csv",
		Type:        core.ConnectorTypeSource,
		Description: "Delimited text from a local file or http(s) URL, optionally compressed",
		Settings: map[string]string{
			"path":        "local file path",
			"url":         "http(s) URL, fetched with retries",
			"compression": "codec override; defaults to the file suffix",
			"headers":     "extra HTTP request headers",
			"comment":     "lines starting with this character are skipped",
			"lazy_quotes": "accept bare quotes in fields",
			"table_name":  "table name; defaults to the file stem",
		},
	})
}
