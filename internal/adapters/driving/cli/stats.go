package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

var statsSource string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store sizes and the last sync of a source",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsSource, "source", "", "show documents and last sync of this source")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if orchestrator == nil {
		return errors.New("sync service not configured")
	}
	ctx := commandContext(cmd)

	cmd.Println("[Chunk stores]")
	for _, name := range chunkStoreNames {
		n, err := orchestrator.CountChunks(ctx, name)
		if err != nil {
			return fmt.Errorf("count %s: %w", name, err)
		}
		cmd.Printf("  %s: %d\n", name, n)
	}
	cmd.Println()

	docs, err := orchestrator.CountDocuments(ctx, driving.StoreDocuments, statsSource)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if statsSource == "" {
		cmd.Printf("Documents: %d\n", docs)
		return nil
	}

	cmd.Printf("[Source %s]\n", statsSource)
	cmd.Printf("  Documents: %d\n", docs)

	status, err := orchestrator.Status(ctx, statsSource)
	if err != nil {
		return fmt.Errorf("sync status: %w", err)
	}
	if status.Running {
		cmd.Printf("  Sync running: %d processed, %d errors\n", status.DocumentsProcessed, status.ErrorCount)
	}
	if last := status.Last; last != nil {
		cmd.Printf("  Last sync: %s (%s)\n", last.LastSync.Format("2006-01-02 15:04:05"), last.Outcome)
		cmd.Printf("  Documents changed: %d\n", last.Documents)
		if len(last.Skipped) > 0 {
			cmd.Printf("  Skipped: %v\n", last.Skipped)
		}
		if last.Error != "" {
			cmd.Printf("  Error: %s\n", last.Error)
		}
	} else {
		cmd.Println("  Never synced")
	}
	return nil
}
