package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/id/uuid"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [seed-url...]",
		Short: "Crawl the job in this process",
		Long: `Runs the whole job in a single process. Seed URLs given as arguments are
crawled as given, several per domain if listed. Without arguments the configured
seeds are used (one per domain), and without those seeds are discovered by search.`,
		RunE: runRunCommand,
	}
}

func runRunCommand(cmd *cobra.Command, args []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	runID, err := uuid.New().NewID()
	if err != nil {
		return err
	}
	tracker := a.newTracker(runID, "run")
	a.startStatusServer(ctx, tracker)

	seeds := argSeeds(args)
	if len(seeds) == 0 {
		builder, err := buildSeedBuilder(a.cfg, a.logger)
		if err != nil {
			return err
		}
		if seeds, err = builder.BuildSeeds(ctx, a.cfg); err != nil {
			return err
		}
	}
	if len(seeds) == 0 {
		a.logger.Warn("no seeds found; check seeds, keywords and search settings")
		return nil
	}

	res, err := a.crawl(ctx, a.cfg, seeds, runID, -1, tracker)
	if err != nil {
		return err
	}
	a.logger.Info("job finished", zap.String("run_id", runID))
	return writeJSON(a.stdout, res.Summary)
}

// argSeeds returns the non-blank command-line seeds without domain dedup.
func argSeeds(args []string) []string {
	var seeds []string
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			seeds = append(seeds, a)
		}
	}
	return seeds
}
