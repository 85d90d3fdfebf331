package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsPolicy decides whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// NewRobotsPolicy builds a policy respecting the config toggle. When respect
// is false every URL is allowed.
func NewRobotsPolicy(respect bool, userAgent string, logger *zap.Logger) RobotsPolicy {
	if !respect {
		return allowAllPolicy{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &robotsEnforcer{
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: userAgent,
		logger:    logger,
	}
}

type allowAllPolicy struct{}

func (allowAllPolicy) Allowed(context.Context, string) bool { return true }

// robotsEnforcer enforces robots.txt directives with a per-host cache.
// An unreachable robots.txt is treated as allow-all.
type robotsEnforcer struct {
	client    *http.Client
	cache     sync.Map
	userAgent string
	logger    *zap.Logger
}

func (r *robotsEnforcer) Allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	data, err := r.load(ctx, parsed)
	if err != nil {
		r.logger.Warn("robots fetch failed; allowing access",
			zap.String("host", parsed.Host), zap.Error(err))
		return true
	}
	group := data.FindGroup(r.userAgent)
	if group == nil {
		return true
	}
	return group.Test(parsed.Path)
}

func (r *robotsEnforcer) load(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	hostKey := strings.ToLower(parsed.Host)
	if cached, ok := r.cache.Load(hostKey); ok {
		data, castOK := cached.(*robotstxt.RobotsData)
		if !castOK {
			return nil, fmt.Errorf("robots cache type mismatch: %T", cached)
		}
		return data, nil
	}

	robotsURL := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			r.logger.Debug("close robots body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	r.cache.Store(hostKey, data)
	return data, nil
}
