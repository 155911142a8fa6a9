package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/api"
	"github.com/JakeFAU/corpus-crawler/internal/config"
	"github.com/JakeFAU/corpus-crawler/internal/runner"
)

// crawl runs one job (or shard) in this process with the full collaborator
// and reporter stack.
func (a *app) crawl(
	ctx context.Context,
	cfg config.JobConfig,
	seeds []string,
	runID string,
	shardID int,
	tracker *api.Tracker,
) (runner.Result, error) {
	logger := a.logger
	if shardID >= 0 {
		logger = logger.With(zap.Int("shard", shardID))
	}

	collab, closeFetcher, err := buildCollaborators(ctx, cfg, logger)
	if err != nil {
		tracker.Fail(err)
		return runner.Result{}, err
	}
	defer closeFetcher()

	reporters, closeReporters := buildReporters(ctx, cfg, logger)
	defer closeReporters()
	reporters = append(reporters, tracker)

	r, err := runner.New(cfg, collab,
		runner.WithLogger(logger.Named("runner")),
		runner.WithCollectors(a.collectors),
		runner.WithReporters(reporters...),
		runner.WithRunID(runID),
		runner.WithShardID(shardID),
	)
	if err != nil {
		tracker.Fail(err)
		return runner.Result{}, fmt.Errorf("prepare runner: %w", err)
	}

	tracker.SetState(api.StateRunning)
	res, err := r.Run(ctx, seeds)
	if err != nil {
		tracker.Fail(err)
		return res, fmt.Errorf("crawl: %w", err)
	}
	tracker.SetState(api.StateFinished)
	return res, nil
}
