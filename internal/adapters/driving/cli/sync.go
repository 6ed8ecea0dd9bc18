package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
	"github.com/custodia-labs/sercha-ingest/internal/normalisers/pdf"
)

// pdfToolAvailable is replaced in tests.
var pdfToolAvailable = pdf.CheckAvailable

// checkDirectoryKind fails early when a directory kind needs a tool that
// is not installed.
func checkDirectoryKind(kind string) error {
	if kind != "pdf" {
		return nil
	}
	if err := pdfToolAvailable(); err != nil {
		return fmt.Errorf("%w\n%s", err, pdf.InstallInstructions())
	}
	return nil
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise a source into its stores",
	Long: `Reconciles the stores with the current contents of a source.

New and modified documents are decomposed into chunks, deleted documents are
removed together with their chunks. A document that fails is skipped and
reported; the rest of the sync continues.`,
}

var syncDBCmd = &cobra.Command{
	Use:   "db <database-id>",
	Short: "Synchronise the tables of a configured database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if targets == nil {
			return errors.New("source resolver not configured")
		}
		target, err := targets.Database(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		return runSyncTarget(cmd, target)
	},
}

func newSyncDirCmd(kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " <dir>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if targets == nil {
				return errors.New("source resolver not configured")
			}
			if err := checkDirectoryKind(kind); err != nil {
				return err
			}
			target, err := targets.Directory(kind, args[0])
			if err != nil {
				return err
			}
			return runSyncTarget(cmd, target)
		},
	}
}

func init() {
	syncCmd.AddCommand(newSyncDirCmd("code", "Synchronise a directory of source code"))
	syncCmd.AddCommand(newSyncDirCmd("pdf", "Synchronise a directory of PDF files"))
	syncCmd.AddCommand(newSyncDirCmd("text", "Synchronise a directory of text, Markdown and HTML files"))
	syncCmd.AddCommand(syncDBCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSyncTarget(cmd *cobra.Command, target *driving.SyncTarget) error {
	defer func() {
		if err := target.Release(); err != nil {
			logger.Warn("release %s: %v", target.Source.SourceID(), err)
		}
	}()

	result, err := syncOnce(cmd, target)
	if err != nil {
		return err
	}
	if result.Err != nil {
		return fmt.Errorf("sync failed: %w", result.Err)
	}
	return nil
}

// syncOnce runs one sync with live progress and prints its result.
// Only store lookup failures are returned as errors.
func syncOnce(cmd *cobra.Command, target *driving.SyncTarget) (*domain.SyncResult, error) {
	if orchestrator == nil {
		return nil, errors.New("sync service not configured")
	}

	cmd.Printf("Synchronising %s...\n", target.Source.SourceID())
	progress := newProgressPrinter(cmd.OutOrStdout())
	result, err := orchestrator.Sync(commandContext(cmd), target.Source, target.ChunkStore, target.DocumentStore,
		driving.WithProgress(progress.Notify))
	progress.Done()
	if err != nil {
		return nil, fmt.Errorf("sync failed: %w", err)
	}

	printSyncResult(cmd, result)
	return result, nil
}

func printSyncResult(cmd *cobra.Command, r *domain.SyncResult) {
	cmd.Printf("Sync %s: %s\n", r.Outcome, r.SourceID)
	cmd.Printf("  Added: %d  Updated: %d  Deleted: %d  Unchanged: %d\n", r.Added, r.Updated, r.Deleted, r.Unchanged)
	cmd.Printf("  Chunks written: %d\n", r.Chunks)
	if r.Resumed > 0 {
		cmd.Printf("  Resumed after interruption: %d\n", r.Resumed)
	}
	cmd.Printf("  Duration: %s\n", r.Duration().Round(time.Millisecond))
	if len(r.Skipped) > 0 {
		cmd.Printf("  Skipped: %d\n", len(r.Skipped))
		for _, s := range r.Skipped {
			cmd.Printf("    - %s: %v\n", s.DocumentID, s.Err)
		}
	}
	if r.Err != nil {
		cmd.Printf("  Error: %v\n", r.Err)
	}
}
