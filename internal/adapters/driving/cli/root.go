// Package cli provides the cobra command tree of sercha-ingest.
package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// Services consumed by the commands. Set through Configure before Execute.
var (
	settingsService driving.SettingsService
	orchestrator    driving.IngestionOrchestrator
	searchService   driving.SearchService
	targets         driving.TargetResolver
	chunkStoreNames []string
	metricsHandler  http.Handler
	newScheduler    SchedulerFactory
)

// SchedulerFactory builds a scheduler that re-syncs its targets every
// interval and hands each finished result to onResult.
type SchedulerFactory func(interval time.Duration, onResult func(*domain.SyncResult)) driving.Scheduler

// Config holds the services the commands run against.
type Config struct {
	Version         string
	Settings        driving.SettingsService
	Orchestrator    driving.IngestionOrchestrator
	Search          driving.SearchService
	Targets         driving.TargetResolver
	ChunkStoreNames []string

	// Metrics serves the Prometheus registry the orchestrator reports to.
	Metrics http.Handler

	// Scheduler drives periodic re-syncs of sources that cannot be watched.
	Scheduler SchedulerFactory
}

// Configure installs the services used by the commands.
func Configure(cfg *Config) {
	if cfg.Version != "" {
		version = cfg.Version
	}
	settingsService = cfg.Settings
	orchestrator = cfg.Orchestrator
	searchService = cfg.Search
	targets = cfg.Targets
	chunkStoreNames = cfg.ChunkStoreNames
	metricsHandler = cfg.Metrics
	newScheduler = cfg.Scheduler
}

var rootCmd = &cobra.Command{
	Use:   "sercha-ingest",
	Short: "Incrementally ingest code, documents and database schemas",
	Long: `sercha-ingest keeps chunk and document stores in step with their sources.

Each sync compares the source with what is stored, regenerates chunks for new
and modified documents and removes deleted ones. Unchanged documents are not
read again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context
// passed to the commands.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
