// Package runner drives one crawl job from seed URLs to the two corpus files.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/clock/system"
	"github.com/JakeFAU/corpus-crawler/internal/config"
	"github.com/JakeFAU/corpus-crawler/internal/crawler"
	"github.com/JakeFAU/corpus-crawler/internal/frontier"
	"github.com/JakeFAU/corpus-crawler/internal/id/uuid"
	"github.com/JakeFAU/corpus-crawler/internal/metrics"
	"github.com/JakeFAU/corpus-crawler/internal/scheduler"
	"github.com/JakeFAU/corpus-crawler/internal/sink"
)

// ErrAlreadyRun is returned when Run is called a second time on a Runner.
var ErrAlreadyRun = errors.New("runner already ran")

// Skip reasons reported to logs and metrics.
const (
	skipVisited   = "visited"
	skipRobots    = "robots"
	skipQuota     = "quota"
	skipFetch     = "fetch"
	skipExtract   = "extract"
	skipLanguage  = "language"
	skipScore     = "score"
	skipRelevance = "relevance"
)

// Collaborators are the per-URL capabilities the runner composes. Links and
// Robots may be nil; the rest are required.
type Collaborators struct {
	Fetcher   crawler.Fetcher
	Extractor crawler.Extractor
	Links     crawler.LinkExtractor
	Detector  crawler.LanguageDetector
	Scorer    crawler.RelevanceScorer
	Robots    crawler.RobotsPolicy
}

func (c Collaborators) validate() error {
	switch {
	case c.Fetcher == nil:
		return errors.New("fetcher is required")
	case c.Extractor == nil:
		return errors.New("extractor is required")
	case c.Detector == nil:
		return errors.New("language detector is required")
	case c.Scorer == nil:
		return errors.New("relevance scorer is required")
	}
	return nil
}

type recordWriter interface {
	Write(record any) (int, error)
	Close() error
	Path() string
}

// Result is what a finished Run reports back to its host.
type Result struct {
	Summary crawler.RunSummary
	// Pending holds the URLs still queued when the run stopped.
	Pending []string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(clock crawler.Clock) Option {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithPauser replaces the politeness sleeper.
func WithPauser(p crawler.Pauser) Option {
	return func(r *Runner) {
		if p != nil {
			r.pauser = p
		}
	}
}

// WithCollectors records run activity in Prometheus.
func WithCollectors(c *metrics.Collectors) Option {
	return func(r *Runner) { r.collectors = c }
}

// WithReporters registers reporters invoked after the sinks are closed.
func WithReporters(reporters ...crawler.RunReporter) Option {
	return func(r *Runner) {
		for _, rep := range reporters {
			if rep != nil {
				r.reporters = append(r.reporters, rep)
			}
		}
	}
}

// WithRunID fixes the run ID instead of generating one.
func WithRunID(runID string) Option {
	return func(r *Runner) { r.runID = runID }
}

// WithShardID tags the run summary with the shard index.
func WithShardID(shardID int) Option {
	return func(r *Runner) { r.shardID = shardID }
}

// Runner executes one crawl job. It is single-threaded and runs at most once.
type Runner struct {
	cfg    config.JobConfig
	collab Collaborators

	frontier  *frontier.Frontier
	scheduler *scheduler.Scheduler
	visited   map[string]struct{}
	domains   map[string]struct{}
	metrics   *metrics.CrawlMetrics

	raw      recordWriter
	filtered recordWriter

	logger     *zap.Logger
	clock      crawler.Clock
	pauser     crawler.Pauser
	collectors *metrics.Collectors
	reporters  []crawler.RunReporter
	runID      string
	shardID    int

	ran bool
}

// New prepares a Runner: it creates the output directory and opens (and
// truncates) both corpus files.
func New(cfg config.JobConfig, collab Collaborators, opts ...Option) (*Runner, error) {
	if err := collab.validate(); err != nil {
		return nil, fmt.Errorf("runner collaborators: %w", err)
	}
	r := &Runner{
		cfg:       cfg,
		collab:    collab,
		frontier:  frontier.New(),
		scheduler: scheduler.New(cfg.Limits.MaxPagesPerDomain),
		visited:   make(map[string]struct{}),
		domains:   make(map[string]struct{}),
		logger:    zap.NewNop(),
		clock:     system.New(),
		pauser:    system.NewPauser(),
		shardID:   -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		id, err := uuid.New().NewID()
		if err != nil {
			return nil, err
		}
		r.runID = id
	}
	r.logger = r.logger.With(zap.String("run_id", r.runID))

	if err := os.MkdirAll(cfg.Output.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", cfg.Output.Dir, err)
	}
	raw, err := sink.Open(cfg.RawPagesPath(), cfg.Output.MaxFileBytes, r.logger)
	if err != nil {
		return nil, err
	}
	filtered, err := sink.Open(cfg.FilteredDocsPath(), cfg.Output.MaxFileBytes, r.logger)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	r.raw = raw
	r.filtered = filtered
	return r, nil
}

// Run crawls from seeds until a budget is exhausted, the frontier empties or
// ctx is canceled. Sinks are closed and reporters notified on every exit path.
func (r *Runner) Run(ctx context.Context, seeds []string) (Result, error) {
	if r.ran {
		return Result{}, ErrAlreadyRun
	}
	r.ran = true

	r.metrics = metrics.NewCrawlMetrics(r.clock.Now())
	added := r.frontier.Extend(seeds)
	r.logger.Info("crawl started",
		zap.String("job", r.cfg.JobName),
		zap.Int("seeds", len(seeds)),
		zap.Int("enqueued", added),
	)

	reason, runErr := r.loop(ctx)
	return r.finalize(ctx, reason, runErr)
}

func (r *Runner) loop(ctx context.Context) (crawler.StopReason, error) {
	for {
		if reason, stop := r.budgetExhausted(); stop {
			return reason, nil
		}
		if ctx.Err() != nil {
			return crawler.StopCanceled, nil
		}
		next, ok := r.frontier.Pop()
		if !ok {
			return crawler.StopFrontierExhausted, nil
		}
		if err := r.process(ctx, next); err != nil {
			return crawler.StopSinkError, err
		}
	}
}

func (r *Runner) budgetExhausted() (crawler.StopReason, bool) {
	limits := r.cfg.Limits
	switch {
	case r.metrics.PagesFetched >= limits.MaxPages:
		return crawler.StopMaxPages, true
	case r.metrics.MegabytesWritten() >= int64(limits.MemoryLimitMB):
		return crawler.StopMemoryLimit, true
	case len(r.domains) >= limits.MaxDomains:
		return crawler.StopMaxDomains, true
	}
	return "", false
}

// process runs a single URL through the gates. Only a sink failure is
// returned; every other failure skips the URL.
func (r *Runner) process(ctx context.Context, pageURL string) error {
	if _, ok := r.visited[pageURL]; ok {
		r.skip(pageURL, skipVisited, nil)
		return nil
	}
	r.visited[pageURL] = struct{}{}

	if r.cfg.Crawler.ObeyRobotsTxt && r.collab.Robots != nil && !r.collab.Robots.Allowed(ctx, pageURL) {
		r.skip(pageURL, skipRobots, nil)
		return nil
	}
	if !r.scheduler.CanCrawl(pageURL) {
		r.skip(pageURL, skipQuota, nil)
		return nil
	}

	html, err := r.collab.Fetcher.Fetch(ctx, pageURL)
	if err == nil && html == "" {
		err = errors.New("empty body")
	}
	if err != nil {
		r.skip(pageURL, skipFetch, err)
		return nil
	}
	r.recordFetch(pageURL, html)
	defer r.politenessPause(ctx)

	return r.filterAndEmit(ctx, pageURL, html)
}

func (r *Runner) recordFetch(pageURL, html string) {
	r.metrics.PagesFetched++
	r.scheduler.MarkCrawled(pageURL)
	r.domains[crawler.Origin(pageURL)] = struct{}{}
	r.collectors.ObserveFetch(pageURL)

	if !r.cfg.Crawler.FollowLinks || r.collab.Links == nil {
		return
	}
	if added := r.frontier.Extend(r.collab.Links.Links(html, pageURL)); added > 0 {
		r.logger.Debug("links enqueued", zap.String("url", pageURL), zap.Int("added", added))
	}
}

func (r *Runner) filterAndEmit(ctx context.Context, pageURL, html string) error {
	text, err := r.collab.Extractor.Extract(html, pageURL)
	if err != nil {
		r.skip(pageURL, skipExtract, err)
		return nil
	}
	if text == "" || utf8.RuneCountInString(text) < r.cfg.Relevance.MinChars {
		r.skip(pageURL, skipExtract, nil)
		return nil
	}

	lang := r.collab.Detector.Detect(text)
	if !r.cfg.LanguageAllowed(lang) {
		r.skip(pageURL, skipLanguage, nil)
		return nil
	}

	score, err := r.collab.Scorer.Score(ctx, text)
	if err != nil {
		r.skip(pageURL, skipScore, err)
		return nil
	}
	if score < r.cfg.Relevance.RelevanceThreshold {
		r.skip(pageURL, skipRelevance, nil)
		return nil
	}

	record := crawler.Record{
		URL:    pageURL,
		Domain: crawler.Domain(pageURL),
		Lang:   lang,
		Text:   text,
	}
	// A failed filtered write leaves this raw line unpaired; the run stops
	// with StopSinkError and the files are not repaired.
	if _, err := r.raw.Write(record); err != nil {
		return fmt.Errorf("write raw record: %w", err)
	}
	n, err := r.filtered.Write(record.Filtered(score))
	if err != nil {
		return fmt.Errorf("write filtered record: %w", err)
	}
	r.metrics.PagesKept++
	r.metrics.TotalBytesWritten += int64(n)
	r.collectors.ObserveKept(n)
	r.logger.Debug("page kept",
		zap.String("url", pageURL),
		zap.String("lang", lang),
		zap.Float64("score", score),
	)
	return nil
}

func (r *Runner) politenessPause(ctx context.Context) {
	if err := r.pauser.Pause(ctx, r.cfg.PolitenessDelay()); err != nil {
		r.logger.Debug("politeness pause interrupted", zap.Error(err))
	}
}

func (r *Runner) skip(pageURL, reason string, err error) {
	r.collectors.ObserveSkip(reason)
	fields := []zap.Field{zap.String("url", pageURL), zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	r.logger.Debug("url skipped", fields...)
}

func (r *Runner) finalize(ctx context.Context, reason crawler.StopReason, runErr error) (Result, error) {
	now := r.clock.Now()
	r.metrics.Finish(now)

	var closeErrs []error
	for _, w := range []recordWriter{r.raw, r.filtered} {
		if err := w.Close(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}

	summary := crawler.RunSummary{
		RunID:             r.runID,
		JobName:           r.cfg.JobName,
		ShardID:           r.shardID,
		PagesFetched:      r.metrics.PagesFetched,
		PagesKept:         r.metrics.PagesKept,
		TotalBytesWritten: r.metrics.TotalBytesWritten,
		DomainsSeen:       len(r.domains),
		StopReason:        reason,
		StartedAt:         r.metrics.StartedAt,
		EndedAt:           r.metrics.EndedAt,
		RawPagesPath:      r.raw.Path(),
		FilteredDocsPath:  r.filtered.Path(),
	}
	duration := r.metrics.Duration(now)
	r.collectors.ObserveRun(string(reason), duration)

	fields := []zap.Field{
		zap.String("stop_reason", string(reason)),
		zap.Int("pages_fetched", summary.PagesFetched),
		zap.Int("pages_kept", summary.PagesKept),
		zap.Int64("bytes_written", summary.TotalBytesWritten),
		zap.Int("domains_seen", summary.DomainsSeen),
		zap.Int("pending", r.frontier.Len()),
		zap.Duration("duration", duration),
	}
	if runErr != nil {
		r.logger.Error("crawl aborted", append(fields, zap.Error(runErr))...)
	} else {
		r.logger.Info("crawl finished", fields...)
	}

	reportCtx := context.WithoutCancel(ctx)
	for _, rep := range r.reporters {
		if err := rep.Report(reportCtx, summary); err != nil {
			r.logger.Warn("run reporter failed", zap.Error(err))
		}
	}

	result := Result{Summary: summary, Pending: r.frontier.Pending()}
	if runErr != nil {
		return result, runErr
	}
	if len(closeErrs) > 0 {
		return result, fmt.Errorf("close sinks: %w", errors.Join(closeErrs...))
	}
	return result, nil
}
