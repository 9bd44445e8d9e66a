package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aganswers/drivesync/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync [project-id]",
	Short: "Synchronise Drive files into the ingestion pipeline",
	Long: `Runs one sync pass. If a project ID is provided, only that project is
synchronised. Otherwise, every project with a Drive integration is.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return notConfigured("sync service")
	}

	ctx := cmd.Context()

	if len(args) > 0 {
		projectID := args[0]
		cmd.Printf("Synchronising project: %s...\n", projectID)

		report, err := syncWithProgress(ctx, cmd, syncOrchestrator, projectID)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		printReport(cmd, report)
		return nil
	}

	cmd.Println("Synchronising all projects...")
	counts, err := syncOrchestrator.SyncAll(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	cmd.Printf("%d project(s) synchronised.\n", counts.Projects)
	printReport(cmd, &driving.SyncReport{Seen: counts.Seen, Skipped: counts.Skipped,
		Queued: counts.Queued, Failed: counts.Failed, Errors: counts.Errors})
	return nil
}

// syncWithProgress runs sync while displaying progress updates.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	projectID string,
) (*driving.SyncReport, error) {
	type result struct {
		report *driving.SyncReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := syncOrch.Sync(ctx, projectID)
		done <- result{report, err}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case r := <-done:
			if lastCount > 0 {
				cmd.Println()
			}
			return r.report, r.err
		case <-ticker.C:
			// best effort
			status, err := syncOrch.Status(ctx, projectID)
			if err == nil && status != nil && status.FilesProcessed > lastCount {
				cmd.Printf("\rProcessing... %d files", status.FilesProcessed)
				lastCount = status.FilesProcessed
			}
		}
	}
}
