package registry

import (
	"context"
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/table"
)

type stubSource struct{ name string }

func (s *stubSource) Name() string                { return s.name }
func (s *stubSource) Open(context.Context) error  { return nil }
func (s *stubSource) Close(context.Context) error { return nil }
func (s *stubSource) Read(context.Context) (*table.Table, error) {
	return table.NewBuilder(s.name).Build(), nil
}

type stubSink struct{}

func (stubSink) Name() string                { return "stub" }
func (stubSink) Close(context.Context) error { return nil }
func (stubSink) Put(_ context.Context, key string, _ io.Reader, _ string) (string, error) {
	return "stub://" + key, nil
}

func TestRegistrySources(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSource("b", func(cfg *config.Config) (core.Source, error) {
		return &stubSource{name: cfg.Name}, nil
	}))
	require.NoError(t, r.RegisterSource("a", func(*config.Config) (core.Source, error) {
		return nil, stderrors.New("bad settings")
	}))

	err := r.RegisterSource("b", nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	assert.Equal(t, []string{"a", "b"}, r.ListSources())
	assert.True(t, r.HasSource("a"))
	assert.False(t, r.HasSource("c"))

	src, err := r.CreateSource("b", config.NewConfig("run"))
	require.NoError(t, err)
	assert.Equal(t, "run", src.Name())

	_, err = r.CreateSource("a", config.NewConfig("run"))
	assert.ErrorContains(t, err, "bad settings")

	_, err = r.CreateSource("c", config.NewConfig("run"))
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, errors.GetDetails(err)["available"])
}

func TestRegistrySinks(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSink("stub", func(*config.Config) (core.Sink, error) { return stubSink{}, nil }))

	sink, err := r.CreateSink("stub", config.NewConfig("run"))
	require.NoError(t, err)
	loc, err := sink.Put(context.Background(), "k", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "stub://k", loc)

	assert.True(t, r.HasSink("stub"))
	assert.Equal(t, []string{"stub"}, r.ListSinks())
	_, err = r.CreateSink("ftp", config.NewConfig("run"))
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	c := NewConnectorCatalog()
	require.NoError(t, c.Register(&ConnectorInfo{Name: "local", Type: core.ConnectorTypeSink}))
	require.NoError(t, c.Register(&ConnectorInfo{Name: "csv", Type: core.ConnectorTypeSource}))
	require.NoError(t, c.Register(&ConnectorInfo{Name: "avro", Type: core.ConnectorTypeSource}))
	assert.Error(t, c.Register(&ConnectorInfo{Name: "csv", Type: core.ConnectorTypeSource}))

	var names []string
	for _, info := range c.List() {
		names = append(names, string(info.Type)+"/"+info.Name)
	}
	assert.Equal(t, []string{"source/avro", "source/csv", "sink/local"}, names)

	_, err := c.Get(core.ConnectorTypeSink, "csv")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}
