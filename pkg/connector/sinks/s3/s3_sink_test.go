package s3

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

	"github.com/ajitpratap0/concord/pkg/config"
)

func TestNewS3SinkRequiresBucket(t *testing.T) {
	_, err := NewS3Sink(config.NewConfig("run"))
	assert.Error(t, err)
}

func TestPutToCompatibleEndpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	var (
		mu          sync.Mutex
		gotPath     string
		gotBody     string
		contentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath = r.URL.Path
		gotBody = string(body)
		contentType = r.Header.Get("Content-Type")
		mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.NewConfig("run")
	cfg.Sink.Type = "s3"
	cfg.Sink.Bucket = "results"
	cfg.Sink.Endpoint = srv.URL
	cfg.Reliability.RetryAttempts = 1

	sink, err := NewS3Sink(cfg)
	require.NoError(t, err)
	defer sink.Close(context.Background())

	loc, err := sink.Put(context.Background(), "checks/run/report.json", strings.NewReader(`{"ok":true}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "s3://results/checks/run/report.json", loc)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/results/checks/run/report.json", gotPath)
	assert.Contains(t, gotBody, `{"ok":true}`)
	assert.Equal(t, "application/json", contentType)
}
