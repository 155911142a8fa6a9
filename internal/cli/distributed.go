package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/corpus-crawler/internal/api"
	"github.com/JakeFAU/corpus-crawler/internal/id/uuid"
	"github.com/JakeFAU/corpus-crawler/internal/shard"
)

type shardOutput struct {
	Index     int     `json:"index"`
	Seeds     int     `json:"seeds"`
	OutputDir string  `json:"output_dir"`
	Seconds   float64 `json:"duration_seconds"`
	Error     string  `json:"error,omitempty"`
}

type distributedOutput struct {
	RunID  string        `json:"run_id"`
	Shards []shardOutput `json:"shards"`
	Failed int           `json:"failed"`
}

func newDistributedCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "distributed",
		Short: "Split the seeds across worker processes",
		Long: `Discovers the seeds, splits them round-robin into at most --workers shards
and runs each shard as a separate process writing under <output.dir>/shard_<i>.
Budgets apply to every shard separately. A crashed shard is reported but does
not fail the command.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDistributedCommand(cmd, workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "number of shard processes")
	return cmd
}

func runDistributedCommand(cmd *cobra.Command, workers int) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	runID, err := uuid.New().NewID()
	if err != nil {
		return err
	}
	tracker := a.newTracker(runID, "distributed")
	a.startStatusServer(ctx, tracker)

	builder, err := buildSeedBuilder(a.cfg, a.logger)
	if err != nil {
		return err
	}
	var args []string
	if a.cfgPath != "" {
		args = []string{"--config", a.cfgPath}
	}
	launcher := &shard.ProcessLauncher{
		Args:   args,
		Stdout: os.Stderr,
		Stderr: os.Stderr,
		Logger: a.logger.Named("launcher"),
	}
	sharder := shard.NewSharder(builder, launcher, a.collectors, a.logger.Named("sharder"))

	tracker.SetState(api.StateRunning)
	report, err := sharder.RunDistributed(ctx, a.cfg, runID, workers)
	if err != nil {
		tracker.Fail(err)
		return fmt.Errorf("distributed run: %w", err)
	}
	tracker.SetState(api.StateFinished)
	return writeJSON(a.stdout, toDistributedOutput(report))
}

func toDistributedOutput(report shard.Report) distributedOutput {
	out := distributedOutput{RunID: report.RunID, Shards: make([]shardOutput, 0, len(report.Shards))}
	for _, o := range report.Shards {
		so := shardOutput{
			Index:     o.Index,
			Seeds:     o.Seeds,
			OutputDir: o.OutputDir,
			Seconds:   o.Duration.Round(time.Millisecond).Seconds(),
		}
		if o.Err != nil {
			so.Error = o.Err.Error()
			out.Failed++
		}
		out.Shards = append(out.Shards, so)
	}
	return out
}
