// Package sources links every source connector into the binary. Importing
// it registers csv, jsonl, columnar, postgresql, sql, mongodb, bigquery and
// kafka with the connector registry.
package sources

import (
	"github.com/ajitpratap0/concord/pkg/connector/registry"

	// Import all source connectors to trigger init() registration
	_ "github.com/ajitpratap0/concord/pkg/connector/sources/bigquery"
	_ "github.com/ajitpratap0/concord/pkg/connector/sources/columnar"
	_ "github.com/ajitpratap0/concord/pkg/connector/sources/csv"
	_ "github.com/ajitpratap0/concord/pkg/connector/sources/jsonl"
	_ "github.com/ajitpratap0/concord/pkg/connector/sources/kafka"
	_ "github.com/ajitpratap0/concord/pkg/connector/sources/mongodb"
	_ "github.com/ajitpratap0/concord/pkg/connector/sources/postgresql"
	_ "github.com/ajitpratap0/concord/pkg/connector/sources/sqldb"
)

// Names returns the registered source names.
func Names() []string {
	return registry.ListSources()
}
