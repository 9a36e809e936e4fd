package clients

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/errors"
)

func fastRetry(attempts int) *RetryPolicy {
	return &RetryPolicy{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func newTestClient(t *testing.T, attempts int) *HTTPClient {
	cfg := DefaultHTTPConfig()
	cfg.Retry = fastRetry(attempts)
	cfg.Headers = map[string]string{"X-Run": "r1"}
	c := NewHTTPClient(cfg, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "r1", r.Header.Get("X-Run"))
		assert.Equal(t, "concord/1.0", r.Header.Get("User-Agent"))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "key,value\na,1\n")
	}))
	defer srv.Close()

	c := newTestClient(t, 3)
	body, err := c.Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "key,value\na,1\n", string(data))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	stats := c.GetStats()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.FailedRequests)
}

func TestFetchGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, 2).Fetch(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(t, 5).Fetch(context.Background(), srv.URL+"/missing.csv", map[string]string{"Accept": "text/csv"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 404, errors.GetDetails(err)["status"])
}

func TestFetchHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, 3).Fetch(ctx, srv.URL, nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
}

func TestRetryPolicyDelay(t *testing.T) {
	p := &RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
	assert.Equal(t, time.Second, p.Delay(10))

	p.RandomizeFactor = 0.5
	for i := 0; i < 20; i++ {
		d := p.Delay(1)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	p := RetryPolicyFromConfig(config.ReliabilityConfig{RetryAttempts: 5, RetryDelay: time.Second, RetryMultiplier: 3})
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialDelay)
	assert.Equal(t, 3.0, p.Multiplier)
	assert.Equal(t, 30*time.Second, p.MaxDelay)

	p = RetryPolicyFromConfig(config.ReliabilityConfig{})
	assert.Equal(t, DefaultRetryPolicy().MaxAttempts, p.MaxAttempts)
}

func TestRetryPolicyStopsOnPermanentError(t *testing.T) {
	var calls int
	permanent := stderrors.New("permanent")
	err := fastRetry(4).Execute(context.Background(), "test", func(context.Context) error {
		calls++
		return permanent
	}, func(error) bool { return false })
	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
}
