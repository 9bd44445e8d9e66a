package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old failed ingestion records and expired pending tokens",
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	if ingestionTracker == nil {
		return notConfigured("ingestion tracker")
	}

	ctx := cmd.Context()
	records, err := ingestionTracker.CleanupFailed(ctx)
	if err != nil {
		return fmt.Errorf("cleanup records: %w", err)
	}
	cmd.Printf("Removed %d failed ingestion record(s).\n", records)

	if tokenManager != nil {
		tokens, err := tokenManager.CleanupTempTokens(ctx)
		if err != nil {
			return fmt.Errorf("cleanup tokens: %w", err)
		}
		cmd.Printf("Removed %d expired pending token(s).\n", tokens)
	}
	return nil
}
