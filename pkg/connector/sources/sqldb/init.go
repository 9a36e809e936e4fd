package sqldb

import (
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource("sql", NewSQLSource)

	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "sql",
		Type:        core.ConnectorTypeSource,
		Description: "MySQL or Snowflake query through database/sql",
		Settings: map[string]string{
			"driver":          "mysql or snowflake",
			"dsn":             "driver data source name; built from the other settings when unset",
			"host":            "mysql host:port",
			"account":         "snowflake account identifier",
			"user":            "user name",
			"password":        "password",
			"database":        "database name",
			"schema":          "snowflake schema",
			"warehouse":       "snowflake warehouse",
			"role":            "snowflake role",
			"query":           "SQL query to run",
			"table":           "table to read when no query is given",
			"max_connections": "connection pool size",
		},
	})
}
