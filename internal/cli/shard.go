package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/corpus-crawler/internal/shard"
)

type shardFlags struct {
	index     int
	outputDir string
	runID     string
}

func newShardCmd() *cobra.Command {
	var flags shardFlags
	cmd := &cobra.Command{
		Use:    "shard",
		Short:  "Run one shard of a distributed job (seeds on stdin)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShardCommand(cmd, flags)
		},
	}
	cmd.Flags().IntVar(&flags.index, "index", -1, "shard index")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "shard output directory")
	cmd.Flags().StringVar(&flags.runID, "run-id", "", "run id shared by all shards")
	return cmd
}

func runShardCommand(cmd *cobra.Command, flags shardFlags) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if flags.index < 0 || flags.outputDir == "" || flags.runID == "" {
		return errors.New("shard requires --index, --output-dir and --run-id")
	}
	seeds, err := shard.ReadSeeds(a.stdin)
	if err != nil {
		return err
	}

	cfg := a.cfg.WithOutputDir(flags.outputDir)
	// the parent owns the status endpoint
	cfg.Metrics.ListenAddr = ""
	tracker := a.newTracker(flags.runID, "shard")

	res, err := a.crawl(cmd.Context(), cfg, seeds, flags.runID, flags.index, tracker)
	if err != nil {
		return fmt.Errorf("shard %d: %w", flags.index, err)
	}
	return writeJSON(a.stdout, res.Summary)
}
