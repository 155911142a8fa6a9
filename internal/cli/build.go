package cli

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/config"
	"github.com/JakeFAU/corpus-crawler/internal/crawler"
	"github.com/JakeFAU/corpus-crawler/internal/discovery"
	"github.com/JakeFAU/corpus-crawler/internal/extract"
	"github.com/JakeFAU/corpus-crawler/internal/fetcher"
	collyfetcher "github.com/JakeFAU/corpus-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/corpus-crawler/internal/fetcher/detector"
	headlessfetcher "github.com/JakeFAU/corpus-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/corpus-crawler/internal/language"
	pubsubpublisher "github.com/JakeFAU/corpus-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/corpus-crawler/internal/relevance"
	"github.com/JakeFAU/corpus-crawler/internal/robots"
	"github.com/JakeFAU/corpus-crawler/internal/runner"
	"github.com/JakeFAU/corpus-crawler/internal/storage/gcs"
	"github.com/JakeFAU/corpus-crawler/internal/storage/postgres"
)

// buildFetcher returns the colly fetcher, wrapped in a render-promoting
// fetcher when render_js is on. The returned func releases the renderer.
func buildFetcher(cfg config.JobConfig, logger *zap.Logger) (crawler.Fetcher, func()) {
	probe := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	})
	if !cfg.Crawler.RenderJS {
		return probe, func() {}
	}
	renderCfg := headlessfetcher.Config{
		MaxParallel:       cfg.Crawler.RenderMaxParallel,
		UserAgent:         cfg.Crawler.UserAgent,
		NavigationTimeout: cfg.RenderTimeout(),
		DomainQPS:         cfg.Crawler.RenderDomainQPS,
	}
	factory := func() (fetcher.Renderer, error) {
		r, err := headlessfetcher.NewChromedp(renderCfg, logger.Named("headless"))
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	promoting := fetcher.NewPromoting(probe, detector.NewHeuristic(cfg.Crawler.PromotionBytes), factory, logger.Named("fetcher"))
	return promoting, promoting.Close
}

// buildCollaborators wires every per-URL capability of the runner.
func buildCollaborators(ctx context.Context, cfg config.JobConfig, logger *zap.Logger) (runner.Collaborators, func(), error) {
	scorer, err := relevance.New(ctx, cfg, relevance.WithLogger(logger.Named("relevance")))
	if err != nil {
		return runner.Collaborators{}, nil, fmt.Errorf("build relevance scorer: %w", err)
	}
	fetch, closeFetch := buildFetcher(cfg, logger)
	collab := runner.Collaborators{
		Fetcher:   fetch,
		Extractor: extract.NewTrafilatura(logger.Named("extract")),
		Links:     extract.NewLinks(),
		Detector:  language.NewLingua(),
		Scorer:    scorer,
		Robots: robots.New(robots.Config{
			Enabled:   cfg.Crawler.ObeyRobotsTxt,
			UserAgent: cfg.Crawler.UserAgent,
			Timeout:   cfg.RequestTimeout(),
		}, logger.Named("robots")),
	}
	return collab, closeFetch, nil
}

func buildSearchEngine(cfg config.JobConfig) (crawler.SearchEngine, error) {
	if cfg.Search.Endpoint == "" {
		return discovery.Noop{}, nil
	}
	return discovery.NewSearXNG(
		cfg.Search.Endpoint,
		cfg.Crawler.UserAgent,
		time.Duration(cfg.Search.TimeoutSeconds)*time.Second,
	)
}

func buildSeedBuilder(cfg config.JobConfig, logger *zap.Logger) (*discovery.Builder, error) {
	engine, err := buildSearchEngine(cfg)
	if err != nil {
		return nil, err
	}
	return discovery.NewBuilder(engine, logger.Named("discovery")), nil
}

// buildReporters connects the optional run sinks. A reporter that cannot be
// constructed is logged and left out; it never blocks the crawl.
func buildReporters(ctx context.Context, cfg config.JobConfig, logger *zap.Logger) ([]crawler.RunReporter, func()) {
	var (
		reporters []crawler.RunReporter
		closers   []func()
	)
	if cfg.DB.DSN != "" {
		store, err := postgres.NewRunStore(ctx, postgres.RunStoreConfig{DSN: cfg.DB.DSN, Table: cfg.DB.Table})
		switch {
		case err != nil:
			logger.Warn("run store disabled", zap.Error(err))
		default:
			if err := store.EnsureSchema(ctx); err != nil {
				logger.Warn("run store schema check failed", zap.Error(err))
			}
			reporters = append(reporters, store)
			closers = append(closers, store.Close)
		}
	}
	if cfg.Publish.GCSBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			logger.Warn("gcs upload disabled", zap.Error(err))
		} else if uploader, err := gcs.New(client, gcs.Config{
			Bucket: cfg.Publish.GCSBucket,
			Prefix: cfg.Publish.GCSPrefix,
		}, logger.Named("gcs")); err != nil {
			logger.Warn("gcs upload disabled", zap.Error(err))
			_ = client.Close()
		} else {
			reporters = append(reporters, uploader)
			closers = append(closers, func() { _ = client.Close() })
		}
	}
	if cfg.Publish.PubSubTopic != "" {
		pub, err := pubsubpublisher.New(ctx, cfg.Publish.PubSubProject, cfg.Publish.PubSubTopic)
		if err != nil {
			logger.Warn("pubsub notification disabled", zap.Error(err))
		} else {
			reporters = append(reporters, pub)
			closers = append(closers, func() {
				if err := pub.Close(); err != nil {
					logger.Warn("pubsub close failed", zap.Error(err))
				}
			})
		}
	}
	return reporters, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}
