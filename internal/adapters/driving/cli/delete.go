package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

var (
	deleteStore    string
	deleteDocStore  string
	deleteSource   string
	deleteDocument string
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove a source or one of its documents from the stores",
	Long: `Removes stored documents together with their chunks. Without --document,
every document of the source is removed.`,
	Args: cobra.NoArgs,
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&deleteStore, "store", "", "chunk store holding the source's chunks")
	deleteCmd.Flags().StringVar(&deleteDocStore, "documents", driving.StoreDocuments, "document store")
	deleteCmd.Flags().StringVar(&deleteSource, "source", "", "source id")
	deleteCmd.Flags().StringVar(&deleteDocument, "document", "", "remove only this document id")
	_ = deleteCmd.MarkFlagRequired("store")
	_ = deleteCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, _ []string) error {
	if orchestrator == nil {
		return errors.New("sync service not configured")
	}
	ctx := commandContext(cmd)

	if deleteDocument != "" {
		if err := orchestrator.DeleteDocument(ctx, deleteStore, deleteDocStore, deleteSource, deleteDocument); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		cmd.Printf("Deleted %s from %s\n", deleteDocument, deleteSource)
		return nil
	}

	n, err := orchestrator.DeleteSource(ctx, deleteStore, deleteDocStore, deleteSource)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	cmd.Printf("Deleted %d document(s) of %s\n", n, deleteSource)
	return nil
}
