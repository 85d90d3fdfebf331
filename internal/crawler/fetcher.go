package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pagelens/crawler/internal/ratelimit"
)

const maxRedirects = 10

var errTooManyRedirects = errors.New("redirect cap exceeded")

// FetcherConfig controls the shared HTTP client.
type FetcherConfig struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int64
}

// Fetcher performs rate-limited HTTP GETs. One Fetcher is shared across all
// workers of all jobs; its client is safe for concurrent use and its
// configuration is read-only after construction.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	logger    *zap.Logger
}

// NewFetcher constructs a Fetcher with bounded redirect following and an
// overall per-request timeout.
func NewFetcher(cfg FetcherConfig, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 10 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        128,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			ForceAttemptHTTP2:   true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}
	return &Fetcher{
		client:    client,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodySize,
		logger:    logger,
	}
}

// Fetch blocks until the limiter grants a token, then issues a GET for the
// URL. Transport failures (including timeouts and the redirect cap) surface
// as *RequestError, non-2xx responses as *StatusError, and limiter failures
// as *RateLimitError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, limiter *ratelimit.Limiter) (FetchResult, error) {
	if err := limiter.Wait(ctx); err != nil {
		return FetchResult{}, &RateLimitError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return FetchResult{}, &RequestError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, &RequestError{URL: rawURL, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			f.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return FetchResult{}, &RequestError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	result := FetchResult{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    flattenHeaders(resp.Header),
		FinalURL:   resp.Request.URL.String(),
		Duration:   time.Since(start),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return result, nil
}

// flattenHeaders keeps the last value for each canonicalized header name.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		out[name] = values[len(values)-1]
	}
	return out
}
