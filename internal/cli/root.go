// Package cli defines the corpus-crawler commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/api"
	"github.com/JakeFAU/corpus-crawler/internal/clock/system"
	"github.com/JakeFAU/corpus-crawler/internal/config"
	"github.com/JakeFAU/corpus-crawler/internal/logging"
	"github.com/JakeFAU/corpus-crawler/internal/metrics"
)

type appKeyType struct{}

// app carries what every subcommand needs once the config is loaded.
type app struct {
	cfgPath    string
	cfg        config.JobConfig
	logger     *zap.Logger
	registry   *prometheus.Registry
	collectors *metrics.Collectors
	stdout     io.Writer
	stdin      io.Reader
}

// loadConfig is a variable so tests can bypass the file system.
var loadConfig = config.Load

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "corpus-crawler",
		Short: "Builds a topic-filtered multilingual text corpus from the web.",
		Long: `corpus-crawler fetches pages starting from seed URLs, extracts their main
text, keeps the pages whose language and topical relevance pass the job's
filters, and writes them as newline-delimited JSON.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			a := &app{
				cfgPath:    cfgPath,
				cfg:        cfg,
				logger:     logger.With(zap.String("job", cfg.JobName)),
				registry:   registry,
				collectors: metrics.NewCollectors(registry),
				stdout:     cmd.OutOrStdout(),
				stdin:      cmd.InOrStdin(),
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKeyType{}, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, err := resolveApp(cmd.Context()); err == nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "job config file (YAML)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newDistributedCmd())
	cmd.AddCommand(newShardCmd())
	cmd.AddCommand(newScoreCmd())
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "corpus-crawler: %v\n", err)
		return 1
	}
	return 0
}

func resolveApp(ctx context.Context) (*app, error) {
	if ctx == nil {
		return nil, errors.New("missing command context")
	}
	a, ok := ctx.Value(appKeyType{}).(*app)
	if !ok || a == nil {
		return nil, errors.New("application not initialized")
	}
	return a, nil
}

// startStatusServer serves probes, metrics and status on metrics.listen_addr
// until ctx is done. It is a no-op when no address is configured.
func (a *app) startStatusServer(ctx context.Context, tracker *api.Tracker) {
	addr := a.cfg.Metrics.ListenAddr
	if addr == "" {
		return
	}
	srv := api.NewServer(tracker, a.registry, a.collectors, a.logger.Named("api"))
	go func() {
		if err := srv.Serve(ctx, addr); err != nil {
			a.logger.Error("status server stopped", zap.Error(err))
		}
	}()
}

func (a *app) newTracker(runID, mode string) *api.Tracker {
	return api.NewTracker(a.cfg.JobName, runID, mode, system.New())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
