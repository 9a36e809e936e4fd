package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func TestAllSourcesRegistered(t *testing.T) {
	want := []string{"bigquery", "columnar", "csv", "jsonl", "kafka", "mongodb", "postgresql", "sql"}
	assert.Equal(t, want, Names())
	for _, name := range want {
		info, err := registry.GetConnectorInfo(core.ConnectorTypeSource, name)
		if assert.NoError(t, err, name) {
			assert.NotEmpty(t, info.Description)
		}
	}
}
