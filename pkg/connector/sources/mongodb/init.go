package mongodb

import (
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource("mongodb", NewMongoDBSource)

	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:        "mongodb",
		Type:        core.ConnectorTypeSource,
		Description: "MongoDB collection snapshot; nested documents become dotted columns",
		Settings: map[string]string{
			"connection_string": "mongodb:// URI",
			"database":          "database name",
			"collection":        "collection name",
			"filter":            "extended JSON query document",
			"fields":            "fields to project",
			"limit":             "maximum number of documents",
		},
	})
}
