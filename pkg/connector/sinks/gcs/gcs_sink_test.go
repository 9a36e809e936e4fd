package gcs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/concord/pkg/clients"
	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
)

func TestNewGCSSink(t *testing.T) {
	t.Setenv(clients.AccessTokenEnv, "")
	cfg := config.NewConfig("run")
	_, err := NewGCSSink(cfg)
	assert.Error(t, err)

	cfg.Sink.Bucket = "results"
	sink, err := NewGCSSink(cfg)
	require.NoError(t, err)
	assert.Empty(t, sink.(*GCSSink).ClientOptions())

	cfg.Sink.CredentialsFile = "/etc/key.json"
	sink, err = NewGCSSink(cfg)
	require.NoError(t, err)
	assert.Len(t, sink.(*GCSSink).ClientOptions(), 1)

	cfg.Sink.Endpoint = "http://localhost:4443/storage/v1/"
	sink, err = NewGCSSink(cfg)
	require.NoError(t, err)
	assert.Len(t, sink.(*GCSSink).ClientOptions(), 2)
}

func TestURL(t *testing.T) {
	assert.Equal(t, "gs://results/checks/a.json", URL("results", "checks/a.json"))
}

func TestPutToEndpoint(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method = r.Method
		body = string(b)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bucket":"results","name":"checks/run/report.json","size":"11"}`))
	}))
	defer srv.Close()

	cfg := config.NewConfig("run")
	cfg.Sink.Bucket = "results"
	cfg.Sink.Endpoint = srv.URL + "/storage/v1/"
	sink, err := NewGCSSink(cfg)
	require.NoError(t, err)
	defer sink.Close(context.Background())

	loc, err := sink.Put(context.Background(), "checks/run/report.json", strings.NewReader(`{"ok":true}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "gs://results/checks/run/report.json", loc)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPost, method)
	assert.Contains(t, body, `{"ok":true}`)
}

func TestPutRejectsBadKey(t *testing.T) {
	cfg := config.NewConfig("run")
	cfg.Sink.Bucket = "results"
	sink, err := NewGCSSink(cfg)
	require.NoError(t, err)
	_, err = sink.Put(context.Background(), "../escape", strings.NewReader("x"), "")
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	assert.True(t, registry.GetRegistry().HasSink("gcs"))
}
