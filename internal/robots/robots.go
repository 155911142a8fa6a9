// Package robots enforces robots.txt directives per origin with fail-open semantics.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

const maxRobotsBytes = 1 << 20

// Config controls robots.txt enforcement.
type Config struct {
	Enabled   bool
	UserAgent string
	Timeout   time.Duration
	Client    *http.Client
}

// Enforcer fetches robots.txt once per origin and answers Allowed from the
// cached ruleset. Fetch or parse failures cache an allow-all ruleset, so an
// origin with an unreachable robots.txt is never re-probed within a run.
type Enforcer struct {
	client    *http.Client
	cache     sync.Map
	userAgent string
	logger    *zap.Logger
}

// New builds a RobotsPolicy respecting the config toggle.
func New(cfg Config, logger *zap.Logger) crawler.RobotsPolicy {
	if !cfg.Enabled {
		return allowAllPolicy{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Enforcer{
		client:    client,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Allowed implements crawler.RobotsPolicy.
func (r *Enforcer) Allowed(ctx context.Context, rawURL string) bool {
	if r == nil {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	target := parsed.EscapedPath()
	if target == "" {
		target = "/"
	}
	return r.rules(ctx, parsed).TestAgent(target, r.userAgent)
}

func (r *Enforcer) rules(ctx context.Context, parsed *url.URL) *robotstxt.RobotsData {
	origin := crawler.Origin(parsed.String())
	if cached, ok := r.cache.Load(origin); ok {
		if data, ok := cached.(*robotstxt.RobotsData); ok {
			return data
		}
	}
	data, err := r.load(ctx, origin)
	if err != nil {
		r.logger.Warn("robots fetch failed; allowing access", zap.String("origin", origin), zap.Error(err))
		data = allowAllRules()
	}
	r.cache.Store(origin, data)
	return data
}

func (r *Enforcer) load(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			r.logger.Debug("Failed to close robots response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// robotstxt treats these as allow-all; an origin refusing robots.txt is skipped instead
		return disallowAllRules()
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}

func allowAllRules() *robotstxt.RobotsData {
	// a 404 is interpreted by robotstxt as "no restrictions"
	data, err := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	if err != nil {
		return &robotstxt.RobotsData{}
	}
	return data
}

func disallowAllRules() (*robotstxt.RobotsData, error) {
	data, err := robotstxt.FromString("User-agent: *\nDisallow: /\n")
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}

type allowAllPolicy struct{}

func (allowAllPolicy) Allowed(context.Context, string) bool { return true }
