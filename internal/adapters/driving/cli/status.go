package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [project-id]",
	Short: "Show ingestion status for a project",
	Long: `Shows whether a sync is running and the latest ingestion record for each
file version, newest first.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if ingestionTracker == nil {
		return notConfigured("ingestion tracker")
	}

	ctx := cmd.Context()
	projectID := args[0]

	if syncOrchestrator != nil {
		st, err := syncOrchestrator.Status(ctx, projectID)
		if err == nil && st != nil && st.Running {
			cmd.Printf("Sync running: %d files processed, %d errors\n", st.FilesProcessed, st.ErrorCount)
		}
	}

	records, err := ingestionTracker.IngestionStatus(ctx, projectID)
	if err != nil {
		return fmt.Errorf("ingestion status: %w", err)
	}
	if len(records) == 0 {
		cmd.Println("No ingestion records.")
		return nil
	}
	for _, r := range records {
		line := fmt.Sprintf("%-9s  %s  %s  %s", r.Status, r.CreatedAt.Format("2006-01-02 15:04"), r.FileID, r.DisplayName)
		if r.Error != "" {
			line += "  (" + r.Error + ")"
		}
		cmd.Println(line)
	}
	return nil
}
