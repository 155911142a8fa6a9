// Package discovery builds the seed URLs of a job, either from the configured
// seeds or from a search engine queried per language and keyword.
package discovery

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/config"
	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

// Builder resolves seed URLs with at most one URL per domain.
type Builder struct {
	engine crawler.SearchEngine
	logger *zap.Logger
}

// NewBuilder wires a Builder. A nil engine disables the search fallback.
func NewBuilder(engine crawler.SearchEngine, logger *zap.Logger) *Builder {
	if engine == nil {
		engine = Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{engine: engine, logger: logger}
}

// NormalizeDomain lowercases the host of rawURL and strips a leading "www.".
func NormalizeDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	return strings.TrimPrefix(host, "www.")
}

// BuildSeeds returns the explicit seeds deduplicated by domain. When none are
// configured it searches every language and keyword pair until
// limits.max_domains distinct domains are found. Search failures are logged
// and the next query is tried.
func (b *Builder) BuildSeeds(ctx context.Context, cfg config.JobConfig) ([]string, error) {
	seen := make(map[string]struct{})
	var seeds []string
	add := func(rawURL string) bool {
		domain := NormalizeDomain(rawURL)
		if _, ok := seen[domain]; ok {
			return false
		}
		seen[domain] = struct{}{}
		seeds = append(seeds, rawURL)
		return true
	}

	for _, s := range cfg.Seeds {
		if strings.TrimSpace(s) == "" {
			continue
		}
		add(strings.TrimSpace(s))
	}
	if len(seeds) > 0 {
		b.logger.Info("using configured seeds", zap.Int("seeds", len(seeds)), zap.Int("configured", len(cfg.Seeds)))
		return seeds, nil
	}

	limit := cfg.Search.ResultsPerQuery
	if limit <= 0 {
		limit = 20
	}
	for _, lang := range cfg.Languages {
		for _, kw := range cfg.Keywords {
			if err := ctx.Err(); err != nil {
				return seeds, err
			}
			if strings.TrimSpace(kw) == "" {
				continue
			}
			results, err := b.engine.Search(ctx, kw, lang, limit)
			if err != nil {
				b.logger.Warn("seed search failed",
					zap.String("query", kw),
					zap.String("lang", lang),
					zap.Error(err),
				)
				continue
			}
			for _, r := range results {
				add(r.URL)
				if len(seeds) >= cfg.Limits.MaxDomains {
					return b.done(seeds), nil
				}
			}
		}
	}
	return b.done(seeds), nil
}

func (b *Builder) done(seeds []string) []string {
	b.logger.Info("seeds discovered by search", zap.Int("seeds", len(seeds)))
	return seeds
}

// Noop is a SearchEngine that never returns results.
type Noop struct{}

// Search implements crawler.SearchEngine.
func (Noop) Search(context.Context, string, string, int) ([]crawler.SearchResult, error) {
	return nil, nil
}
