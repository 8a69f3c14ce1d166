package internal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telavant/tmfbridge"
)

func proxyConfig(baseURL string) *tmfbridge.Config {
	return &tmfbridge.Config{
		UpstreamBaseURL: baseURL,
		UpstreamTimeout: 2 * time.Second,
		RetryCount:      1,
		RetryDelay:      time.Millisecond,
		APIKeyHeader:    "X-API-Key",
	}
}

// failNTimes hijacks and drops the first n connections, then delegates.
func failNTimes(n int64, attempts *atomic.Int64, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= n {
			hj, ok := w.(http.Hijacker)
			if !ok {
				panic("test server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				panic(err)
			}
			conn.Close()
			return
		}
		next(w, r)
	}
}

func TestForwardSuccess(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "i-1", "name": "bolt"}`))
	}))
	defer srv.Close()

	p := NewProxyClient(proxyConfig(srv.URL), nil, nil)
	result, err := p.Forward(context.Background(), http.MethodGet, "/Item/i-1", nil, nil, map[string]string{"name": "bolt"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "/Item/i-1", gotPath)
	assert.Equal(t, "name=bolt", gotQuery)
	body, ok := result.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bolt", body["name"])
}

func TestForwardRetriesTransportFailures(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(failNTimes(2, &attempts, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	cfg := proxyConfig(srv.URL)
	cfg.RetryCount = 2

	p := NewProxyClient(cfg, nil, nil)
	result, err := p.Forward(context.Background(), http.MethodGet, "/Item", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, int64(3), attempts.Load())
}

func TestForwardExhaustsRetries(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(failNTimes(1000, &attempts, func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	cfg := proxyConfig(srv.URL)
	cfg.RetryCount = 2
	metrics := NewMetrics()

	p := NewProxyClient(cfg, nil, metrics)
	_, err := p.Forward(context.Background(), http.MethodGet, "/Item", nil, nil, nil)
	require.Error(t, err)

	be := tmfbridge.AsBridgeError(err)
	assert.Equal(t, tmfbridge.ErrCodeUpstreamUnavailable, be.Code)
	assert.Equal(t, http.StatusBadGateway, be.HTTPStatus())
	// retry count of 2 means three attempts total
	assert.Equal(t, int64(3), attempts.Load())
	assert.Equal(t, 3, be.Details["attempts"])
	assert.Equal(t, uint64(1), metrics.Snapshot().Counters.ProxyErrors)
}

func TestForwardDoesNotRetryApplicationErrors(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "no such item"}`))
	}))
	defer srv.Close()

	cfg := proxyConfig(srv.URL)
	cfg.RetryCount = 3

	p := NewProxyClient(cfg, nil, nil)
	result, err := p.Forward(context.Background(), http.MethodGet, "/Item/missing", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Equal(t, int64(1), attempts.Load())
}

func TestForwardStopsOnCancelledContext(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(failNTimes(1000, &attempts, func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	cfg := proxyConfig(srv.URL)
	cfg.RetryCount = 100

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProxyClient(cfg, nil, nil)
	_, err := p.Forward(ctx, http.MethodGet, "/Item", nil, nil, nil)
	require.Error(t, err)
	assert.Less(t, attempts.Load(), int64(5))
}

func TestForwardSendsJSONBody(t *testing.T) {
	var gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := NewProxyClient(proxyConfig(srv.URL), nil, nil)
	result, err := p.Forward(context.Background(), http.MethodPost, "/Item", nil,
		map[string]any{"name": "bolt"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"name": "bolt"}`, gotBody)
}

func TestForwardWrapsNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain text payload"))
	}))
	defer srv.Close()

	p := NewProxyClient(proxyConfig(srv.URL), nil, nil)
	result, err := p.Forward(context.Background(), http.MethodGet, "/Item", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"raw": "plain text payload"}, result.Body)
}

func TestForwardAuthHeaderPrecedence(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-API-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clientHeader := http.Header{}
	clientHeader.Set("Authorization", "Bearer client-token")
	clientHeader.Set("X-API-Key", "client-key")

	// no static material: client headers pass through
	p := NewProxyClient(proxyConfig(srv.URL), nil, nil)
	_, err := p.Forward(context.Background(), http.MethodGet, "/Item", clientHeader, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer client-token", gotAuth)
	assert.Equal(t, "client-key", gotKey)

	// static bearer and key override the client's
	cfg := proxyConfig(srv.URL)
	cfg.AuthBearer = "static-token"
	cfg.APIKey = "static-key"
	p = NewProxyClient(cfg, nil, nil)
	_, err = p.Forward(context.Background(), http.MethodGet, "/Item", clientHeader, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer static-token", gotAuth)
	assert.Equal(t, "static-key", gotKey)
}

func TestForwardErrorNeverLeaksAuthMaterial(t *testing.T) {
	cfg := proxyConfig("http://127.0.0.1:1") // nothing listens here
	cfg.RetryCount = 0
	cfg.AuthBearer = "super-secret-token"
	cfg.APIKey = "super-secret-key"

	clientHeader := http.Header{}
	clientHeader.Set("Authorization", "Bearer client-secret")

	p := NewProxyClient(cfg, nil, nil)
	_, err := p.Forward(context.Background(), http.MethodGet, "/Item", clientHeader, nil, nil)
	require.Error(t, err)

	be := tmfbridge.AsBridgeError(err)
	assert.NotContains(t, be.Error(), "super-secret")
	assert.NotContains(t, be.Error(), "client-secret")
	for _, v := range be.Details {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "super-secret")
			assert.NotContains(t, s, "client-secret")
		}
	}
}

func TestHealthProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewProxyClient(proxyConfig(srv.URL), nil, nil)
	health := p.Health(context.Background())
	// any response at all means reachable
	assert.True(t, health.OK)
	assert.Equal(t, http.StatusNotFound, health.StatusCode)
	assert.Equal(t, srv.URL, health.BaseURL)
}

func TestHealthProbeUnreachable(t *testing.T) {
	p := NewProxyClient(proxyConfig("http://127.0.0.1:1"), nil, nil)
	health := p.Health(context.Background())
	assert.False(t, health.OK)
}

func TestBuildURLJoinsBasePath(t *testing.T) {
	p := NewProxyClient(proxyConfig("http://backend:8000/api/v2/"), nil, nil)
	u, err := p.buildURL("/Item/i-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://backend:8000/api/v2/Item/i-1", u)
}
