package postgresql

import (
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource("postgresql", NewPostgreSQLSource)

	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "postgresql",
		Type:        core.ConnectorTypeSource,
		Description: "PostgreSQL query through a pgx connection pool",
		Settings: map[string]string{
			"connection_string": "postgres:// URL or key=value DSN",
			"query":             "SQL query to run",
			"table":             "table to read when no query is given",
			"columns":           "columns to select from table",
			"max_connections":   "pool size",
			"timeout":           "query timeout",
		},
	})
}
