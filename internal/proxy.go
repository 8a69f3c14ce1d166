package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/telavant/tmfbridge"
	"go.uber.org/zap"
)

// ProxyClient forwards translated requests to the native backend with a
// bounded per-attempt timeout, sequential retries for transport-level
// failures, and the configured auth-header merge policy.
type ProxyClient struct {
	cfg     *tmfbridge.Config
	client  *http.Client
	metrics *Metrics
}

// NewProxyClient creates a proxy client. A nil HTTP client gets a default
// without a client-level timeout: the per-attempt timeout is enforced via
// request contexts so retries keep their own budget.
func NewProxyClient(cfg *tmfbridge.Config, client *http.Client, metrics *Metrics) *ProxyClient {
	if client == nil {
		client = &http.Client{}
	}
	return &ProxyClient{cfg: cfg, client: client, metrics: metrics}
}

// Forward sends one request upstream. Non-2xx application responses are
// returned as-is for the caller to translate; only transport failures are
// retried, up to the configured retry count. Exhaustion maps to
// UpstreamUnavailable and increments the proxy-error counter.
func (p *ProxyClient) Forward(ctx context.Context, method, path string, header http.Header, body any, query map[string]string) (*tmfbridge.UpstreamResult, error) {
	target, err := p.buildURL(path, query)
	if err != nil {
		return nil, tmfbridge.NewInternalError("build upstream URL", err)
	}

	var bodyBytes []byte
	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, tmfbridge.NewInternalError("encode upstream body", err)
		}
	}

	var result *tmfbridge.UpstreamResult
	attempt := 0
	op := func() error {
		attempt++
		res, err := p.attempt(ctx, method, target, header, bodyBytes, attempt)
		if err != nil {
			if ctx.Err() != nil {
				// caller cancelled or disconnected; do not retry further
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		result = res
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.cfg.RetryDelay), uint64(p.cfg.RetryCount)),
		ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if p.metrics != nil {
			p.metrics.IncProxyErrors()
		}
		return nil, tmfbridge.NewUpstreamUnavailableError(p.cfg.UpstreamBaseURL, err).
			WithDetail("attempts", attempt)
	}
	return result, nil
}

func (p *ProxyClient) attempt(ctx context.Context, method, target string, header http.Header, body []byte, attempt int) (*tmfbridge.UpstreamResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.UpstreamTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, target, reader)
	if err != nil {
		return nil, err
	}
	p.mergeHeaders(req, header)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		zap.S().Debugw("upstream attempt failed",
			"method", method,
			"attempt", attempt,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return nil, err
	}
	defer resp.Body.Close()

	zap.S().Debugw("upstream attempt completed",
		"method", method,
		"attempt", attempt,
		"duration_ms", elapsed.Milliseconds(),
		"status", resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &tmfbridge.UpstreamResult{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       decodeBody(resp.Header.Get("Content-Type"), raw),
	}, nil
}

// mergeHeaders applies the auth precedence: client-forwarded Authorization
// and API-key header first, then the static API key, then the static
// bearer token, which overrides any client Authorization outright.
func (p *ProxyClient) mergeHeaders(req *http.Request, header http.Header) {
	if header != nil {
		if auth := header.Get("Authorization"); auth != "" {
			req.Header.Set("Authorization", auth)
		}
		if key := header.Get(p.cfg.APIKeyHeader); key != "" {
			req.Header.Set(p.cfg.APIKeyHeader, key)
		}
	}
	if p.cfg.APIKey != "" {
		req.Header.Set(p.cfg.APIKeyHeader, p.cfg.APIKey)
	}
	if p.cfg.AuthBearer != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.AuthBearer)
	}
}

// Health probes the upstream base URL once, without retries.
func (p *ProxyClient) Health(ctx context.Context) tmfbridge.HealthStatus {
	status := tmfbridge.HealthStatus{BaseURL: p.cfg.UpstreamBaseURL}

	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.UpstreamTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, p.cfg.UpstreamBaseURL, nil)
	if err != nil {
		return status
	}
	resp, err := p.client.Do(req)
	if err != nil {
		if p.metrics != nil {
			p.metrics.IncProxyErrors()
		}
		return status
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	status.OK = true
	status.StatusCode = resp.StatusCode
	return status
}

func (p *ProxyClient) buildURL(path string, query map[string]string) (string, error) {
	base, err := url.Parse(p.cfg.UpstreamBaseURL)
	if err != nil {
		return "", err
	}
	joined := strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u := *base
	u.Path = joined
	if len(query) > 0 {
		values := url.Values{}
		for k, v := range query {
			values.Set(k, v)
		}
		u.RawQuery = values.Encode()
	}
	return u.String(), nil
}

// decodeBody decodes a JSON response body; anything else is wrapped so
// callers always receive structured data.
func decodeBody(contentType string, raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	if strings.Contains(strings.ToLower(contentType), "application/json") {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			return decoded
		}
	}
	return map[string]any{"raw": string(raw)}
}
