// Package shard splits a job's seeds across isolated worker processes and
// waits for all of them.
package shard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/corpus-crawler/internal/config"
	"github.com/JakeFAU/corpus-crawler/internal/metrics"
)

// ErrInvalidShardCount is returned when fewer than one shard is requested.
var ErrInvalidShardCount = errors.New("shard count must be >= 1")

// Split distributes seeds round-robin: seed i goes to shard i mod n. Shards
// that would be empty are dropped, so fewer than n slices may be returned.
func Split(seeds []string, n int) ([][]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidShardCount, n)
	}
	buckets := make([][]string, n)
	for i, seed := range seeds {
		buckets[i%n] = append(buckets[i%n], seed)
	}
	shards := make([][]string, 0, n)
	for _, b := range buckets {
		if len(b) > 0 {
			shards = append(shards, b)
		}
	}
	return shards, nil
}

// Job is the unit of work handed to a Launcher.
type Job struct {
	RunID     string
	Index     int
	Seeds     []string
	OutputDir string
}

// Launcher runs one shard to completion in isolation from the others.
type Launcher interface {
	Launch(ctx context.Context, job Job) error
}

// SeedBuilder resolves the seed list of a job.
type SeedBuilder interface {
	BuildSeeds(ctx context.Context, cfg config.JobConfig) ([]string, error)
}

// Outcome records how one shard ended.
type Outcome struct {
	Index     int
	Seeds     int
	OutputDir string
	Duration  time.Duration
	Err       error
}

// Report summarizes a distributed run.
type Report struct {
	RunID  string
	Shards []Outcome
}

// Failed returns the shards that did not exit cleanly.
func (r Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Shards {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Sharder coordinates a distributed crawl.
type Sharder struct {
	builder    SeedBuilder
	launcher   Launcher
	logger     *zap.Logger
	collectors *metrics.Collectors
}

// NewSharder wires a Sharder.
func NewSharder(builder SeedBuilder, launcher Launcher, collectors *metrics.Collectors, logger *zap.Logger) *Sharder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sharder{
		builder:    builder,
		launcher:   launcher,
		logger:     logger,
		collectors: collectors,
	}
}

// ShardDir returns the output directory of shard index under the job's output dir.
func ShardDir(outputDir string, index int) string {
	return filepath.Join(outputDir, fmt.Sprintf("shard_%d", index))
}

// RunDistributed builds the seeds, splits them into at most numWorkers shards
// and launches every shard concurrently. It returns once all shards have
// exited. A crashed shard is recorded in the report and never fails the job.
// Budgets in cfg apply to each shard separately.
func (s *Sharder) RunDistributed(ctx context.Context, cfg config.JobConfig, runID string, numWorkers int) (Report, error) {
	seeds, err := s.builder.BuildSeeds(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("build seeds: %w", err)
	}
	shards, err := Split(seeds, numWorkers)
	if err != nil {
		return Report{}, err
	}
	report := Report{RunID: runID, Shards: make([]Outcome, len(shards))}
	if len(shards) == 0 {
		s.logger.Warn("no seeds to distribute", zap.String("job", cfg.JobName))
		return report, nil
	}
	s.logger.Info("launching shards",
		zap.String("run_id", runID),
		zap.Int("seeds", len(seeds)),
		zap.Int("shards", len(shards)),
	)

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for i, shardSeeds := range shards {
		job := Job{
			RunID:     runID,
			Index:     i,
			Seeds:     shardSeeds,
			OutputDir: ShardDir(cfg.Output.Dir, i),
		}
		g.Go(func() error {
			start := time.Now()
			launchErr := s.launcher.Launch(ctx, job)
			outcome := Outcome{
				Index:     job.Index,
				Seeds:     len(job.Seeds),
				OutputDir: job.OutputDir,
				Duration:  time.Since(start),
				Err:       launchErr,
			}
			s.observe(outcome)
			mu.Lock()
			report.Shards[job.Index] = outcome
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("all shards finished",
		zap.String("run_id", runID),
		zap.Int("shards", len(report.Shards)),
		zap.Int("failed", len(report.Failed())),
	)
	return report, nil
}

func (s *Sharder) observe(o Outcome) {
	fields := []zap.Field{
		zap.Int("shard", o.Index),
		zap.Int("seeds", o.Seeds),
		zap.String("output_dir", o.OutputDir),
		zap.Duration("duration", o.Duration),
	}
	if o.Err != nil {
		s.collectors.ObserveShard("failed")
		s.logger.Error("shard crashed", append(fields, zap.Error(o.Err))...)
		return
	}
	s.collectors.ObserveShard("succeeded")
	s.logger.Info("shard finished", fields...)
}

// WriteSeeds writes one seed per line.
func WriteSeeds(w io.Writer, seeds []string) error {
	bw := bufio.NewWriter(w)
	for _, seed := range seeds {
		if _, err := bw.WriteString(seed + "\n"); err != nil {
			return fmt.Errorf("write seed: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush seeds: %w", err)
	}
	return nil
}

// ReadSeeds reads one seed per line, ignoring blank lines.
func ReadSeeds(r io.Reader) ([]string, error) {
	var seeds []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			seeds = append(seeds, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}
	return seeds, nil
}
