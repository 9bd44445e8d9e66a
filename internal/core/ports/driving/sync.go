package driving

import (
	"context"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// SyncOrchestrator coordinates document synchronisation from Drive.
type SyncOrchestrator interface {
	// Sync runs one pass over the project's selected items.
	Sync(ctx context.Context, projectID string) (*SyncReport, error)

	// SyncItems runs one pass restricted to the given selected item IDs.
	SyncItems(ctx context.Context, projectID string, itemIDs []string) (*SyncReport, error)

	// SyncAll syncs every project with a Drive integration and returns
	// the summed counts of the passes that completed. Per-project failures
	// are logged.
	SyncAll(ctx context.Context) (domain.RunCounts, error)

	// Status returns sync status for a project.
	Status(ctx context.Context, projectID string) (*SyncStatus, error)
}

// IngestionTracker follows ingestion records after submission.
type IngestionTracker interface {
	// HandleCallback applies a pipeline callback to the matching record.
	// Returns nil and no error if no record matches.
	HandleCallback(ctx context.Context, cb domain.IngestionCallback) (*domain.IngestionRecord, error)

	// IngestionStatus returns the latest record per file version.
	IngestionStatus(ctx context.Context, projectID string) ([]domain.IngestionRecord, error)

	// CleanupFailed removes failed records older than the retention window.
	CleanupFailed(ctx context.Context) (int, error)
}

// SyncReport summarises one sync pass.
type SyncReport struct {
	ProjectID string
	// Seen is the number of distinct files considered.
	Seen int
	// Skipped counts files whose version was already ingested.
	Skipped int
	// Queued counts files submitted to the pipeline.
	Queued int
	// Failed counts files recorded as failed.
	Failed int
	// Errors counts files that could not be processed at all.
	Errors int
}

// SyncStatus represents the current state of a sync operation.
type SyncStatus struct {
	// ProjectID identifies the project.
	ProjectID string

	// Running indicates if sync is currently in progress.
	Running bool

	// FilesProcessed is the count of files processed so far.
	FilesProcessed int

	// ErrorCount is the number of errors encountered.
	ErrorCount int
}
