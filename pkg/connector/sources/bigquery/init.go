package bigquery

import (
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource("bigquery", NewBigQuerySource)

	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "bigquery",
		Type:        core.ConnectorTypeSource,
		Description: "Google BigQuery query results",
		Settings: map[string]string{
			"project_id":       "GCP project that runs the job",
			"query":            "standard SQL query",
			"table":            "project.dataset.table to read when no query is given",
			"location":         "job location, e.g. US or EU",
			"credentials_file": "service account key file; application default credentials when unset",
			"access_token":     "OAuth access token, defaults to GOOGLE_OAUTH_ACCESS_TOKEN",
			"endpoint":         "API endpoint of an emulator, disables authentication",
		},
	})
}
