package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// DefaultWatchInterval is how often a watched database is re-synced.
const DefaultWatchInterval = 15 * time.Minute

var (
	watchDebounce    time.Duration
	watchInterval    time.Duration
	watchMetricsAddr string
)

// changeWatcher is implemented by directory sources.
type changeWatcher interface {
	Watch(ctx context.Context, debounce time.Duration) (<-chan []filesystem.Change, error)
}

var watchCmd = &cobra.Command{
	Use:   "watch <code|pdf|text|db> <dir|database-id>",
	Short: "Synchronise a source and keep it in sync",
	Long: `Runs an initial sync of the directory, then watches it for changes and
syncs again after each debounced batch of file events. Stops on interrupt.

A database cannot be watched for changes. "watch db <id>" re-syncs it every
--interval instead, starting once the last recorded sync is that old.

With --metrics-addr, sync metrics are served in Prometheus format at /metrics.`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filesystem.DefaultDebounce, "quiet period before a batch of changes is synced")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", DefaultWatchInterval, "re-sync period of a watched database")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if targets == nil {
		return errors.New("source resolver not configured")
	}
	ctx := commandContext(cmd)

	if args[0] == "db" {
		return runWatchDatabase(ctx, cmd, args[1])
	}

	if err := checkDirectoryKind(args[0]); err != nil {
		return err
	}
	target, err := targets.Directory(args[0], args[1])
	if err != nil {
		return err
	}
	defer func() { _ = target.Release() }()

	w, ok := target.Source.(changeWatcher)
	if !ok {
		return fmt.Errorf("source %s cannot be watched", target.Source.SourceID())
	}

	stop, err := startMetrics(cmd)
	if err != nil {
		return err
	}
	defer stop()

	if _, err := syncOnce(cmd, target); err != nil {
		return err
	}

	changes, err := w.Watch(ctx, watchDebounce)
	if err != nil {
		return fmt.Errorf("watch %s: %w", args[1], err)
	}
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", args[1])

	for batch := range changes {
		for _, c := range batch {
			logger.Debug("%s %s", c.Type, c.Path)
		}
		cmd.Printf("%d change(s) detected\n", len(batch))
		if _, err := syncOnce(cmd, target); err != nil {
			return err
		}
	}
	return nil
}

// runWatchDatabase re-syncs a configured database on a schedule until ctx
// is cancelled.
func runWatchDatabase(ctx context.Context, cmd *cobra.Command, id string) error {
	if newScheduler == nil {
		return errors.New("scheduler not configured")
	}
	if watchInterval <= 0 {
		return fmt.Errorf("%w: --interval must be positive", domain.ErrInvalidInput)
	}

	target, err := targets.Database(ctx, id)
	if err != nil {
		return err
	}
	defer func() {
		if err := target.Release(); err != nil {
			logger.Warn("release %s: %v", id, err)
		}
	}()

	stop, err := startMetrics(cmd)
	if err != nil {
		return err
	}
	defer stop()

	sched := newScheduler(watchInterval, func(r *domain.SyncResult) {
		printSyncResult(cmd, r)
	})
	sched.Add(target)

	cmd.Printf("Syncing database %s every %s (Ctrl+C to stop)\n", id, watchInterval)
	err = sched.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startMetrics serves metrics when --metrics-addr is set. The returned func
// is never nil.
func startMetrics(cmd *cobra.Command) (func(), error) {
	if watchMetricsAddr == "" {
		return func() {}, nil
	}
	stop, err := serveMetrics(watchMetricsAddr)
	if err != nil {
		return nil, err
	}
	cmd.Printf("Serving metrics on %s/metrics\n", watchMetricsAddr)
	return stop, nil
}

// serveMetrics starts an HTTP server for the metrics handler and returns a
// func that shuts it down.
func serveMetrics(addr string) (func(), error) {
	if metricsHandler == nil {
		return nil, errors.New("metrics not configured")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
