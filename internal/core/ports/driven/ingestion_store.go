package driven

import (
	"context"
	"time"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// IngestionStore persists ingestion records.
// At most one succeeded record may exist per
// (project, provider, file, version hint).
type IngestionStore interface {
	// Insert stores a new record. An empty ID is assigned.
	Insert(ctx context.Context, record *domain.IngestionRecord) error

	// HasSucceeded reports whether the file version was already ingested.
	HasSucceeded(ctx context.Context, projectID, provider, fileID, versionHint string) (bool, error)

	// FindLatestVersion returns the most recent record for a file version.
	// Returns nil and no error if none exists.
	FindLatestVersion(ctx context.Context, projectID, provider, fileID, versionHint string) (*domain.IngestionRecord, error)

	// Complete moves a queued record to a terminal status.
	// Returns domain.ErrAlreadyExists if another succeeded record already
	// holds the same file version, domain.ErrAlreadyCompleted if the record
	// is no longer queued, and domain.ErrNotFound for unknown IDs.
	Complete(ctx context.Context, id string, status domain.IngestionStatus, errMsg string, completedAt time.Time) error

	// FindByBlob returns the most recent record matching the display name
	// and staged blob key. Returns nil and no error if none exists.
	FindByBlob(ctx context.Context, provider, displayName, blobKey string) (*domain.IngestionRecord, error)

	// FindLatestByName returns the most recent record for the project and
	// display name. Returns nil and no error if none exists.
	FindLatestByName(ctx context.Context, provider, projectID, displayName string) (*domain.IngestionRecord, error)

	// ListByProject returns the project's records, newest first.
	ListByProject(ctx context.Context, projectID, provider string) ([]domain.IngestionRecord, error)

	// DeleteFailedBefore removes failed records created before cutoff.
	DeleteFailedBefore(ctx context.Context, provider string, cutoff time.Time) (int, error)
}
