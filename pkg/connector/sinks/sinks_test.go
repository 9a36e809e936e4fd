package sinks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func TestAllSinksRegistered(t *testing.T) {
	want := []string{"gcs", "local", "s3"}
	assert.Equal(t, want, Names())
	for _, name := range want {
		info, err := registry.GetConnectorInfo(core.ConnectorTypeSink, name)
		if assert.NoError(t, err, name) {
			assert.Equal(t, core.ConnectorTypeSink, info.Type)
		}
	}
}
