package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
)

// Ensure IngestionStore implements the interface.
var _ driven.IngestionStore = (*IngestionStore)(nil)

// IngestionStore is an in-memory implementation of driven.IngestionStore.
// Records are kept in insertion order.
type IngestionStore struct {
	mu      sync.RWMutex
	records []domain.IngestionRecord
}

// NewIngestionStore creates a new in-memory ingestion store.
func NewIngestionStore() *IngestionStore {
	return &IngestionStore{}
}

func sameVersion(a, b *domain.IngestionRecord) bool {
	return a.ProjectID == b.ProjectID && a.Provider == b.Provider &&
		a.FileID == b.FileID && a.VersionHint == b.VersionHint
}

// succeededConflict reports whether a record other than skip already
// succeeded for the same version. Caller holds the lock.
func (s *IngestionStore) succeededConflict(r *domain.IngestionRecord, skip string) bool {
	for i := range s.records {
		other := &s.records[i]
		if other.ID != skip && other.Status == domain.IngestionSucceeded && sameVersion(other, r) {
			return true
		}
	}
	return false
}

// Insert stores a new record.
func (s *IngestionStore) Insert(_ context.Context, record *domain.IngestionRecord) error {
	if record == nil || record.ProjectID == "" || record.FileID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Status == domain.IngestionSucceeded && s.succeededConflict(record, "") {
		return fmt.Errorf("%w: file %s version %s already ingested",
			domain.ErrAlreadyExists, record.FileID, record.VersionHint)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	s.records = append(s.records, *record)
	return nil
}

// HasSucceeded reports whether the file version was already ingested.
func (s *IngestionStore) HasSucceeded(_ context.Context, projectID, provider, fileID, versionHint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	probe := domain.IngestionRecord{ProjectID: projectID, Provider: provider, FileID: fileID, VersionHint: versionHint}
	return s.succeededConflict(&probe, ""), nil
}

// FindLatestVersion returns the most recent record for a file version.
func (s *IngestionStore) FindLatestVersion(_ context.Context, projectID, provider, fileID, versionHint string) (*domain.IngestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest(func(r *domain.IngestionRecord) bool {
		return r.ProjectID == projectID && r.Provider == provider && r.FileID == fileID && r.VersionHint == versionHint
	}), nil
}

// Complete moves a queued record to a terminal status.
func (s *IngestionStore) Complete(_ context.Context, id string, status domain.IngestionStatus, errMsg string, completedAt time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal status", domain.ErrInvalidInput, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		r := &s.records[i]
		if r.ID != id {
			continue
		}
		if r.Status != domain.IngestionQueued {
			return fmt.Errorf("%w: record %s is %s", domain.ErrAlreadyCompleted, id, r.Status)
		}
		if status == domain.IngestionSucceeded && s.succeededConflict(r, id) {
			return fmt.Errorf("%w: another record already succeeded", domain.ErrAlreadyExists)
		}
		r.Status = status
		r.Error = errMsg
		r.CompletedAt = completedAt
		return nil
	}
	return domain.ErrNotFound
}

// latest returns the newest record matching fn. Caller holds the lock.
func (s *IngestionStore) latest(fn func(*domain.IngestionRecord) bool) *domain.IngestionRecord {
	var found *domain.IngestionRecord
	for i := range s.records {
		r := &s.records[i]
		if fn(r) && (found == nil || !r.CreatedAt.Before(found.CreatedAt)) {
			found = r
		}
	}
	if found == nil {
		return nil
	}
	cp := *found
	return &cp
}

// FindByBlob returns the most recent record for the display name and blob key.
func (s *IngestionStore) FindByBlob(_ context.Context, provider, displayName, blobKey string) (*domain.IngestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest(func(r *domain.IngestionRecord) bool {
		return r.Provider == provider && r.DisplayName == displayName && r.BlobKey == blobKey
	}), nil
}

// FindLatestByName returns the most recent record for the project and display name.
func (s *IngestionStore) FindLatestByName(_ context.Context, provider, projectID, displayName string) (*domain.IngestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest(func(r *domain.IngestionRecord) bool {
		return r.Provider == provider && r.ProjectID == projectID && r.DisplayName == displayName
	}), nil
}

// ListByProject returns the project's records, newest first.
func (s *IngestionStore) ListByProject(_ context.Context, projectID, provider string) ([]domain.IngestionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.IngestionRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.ProjectID == projectID && r.Provider == provider {
			result = append(result, r)
		}
	}
	return result, nil
}

// DeleteFailedBefore removes failed records created before cutoff.
func (s *IngestionStore) DeleteFailedBefore(_ context.Context, provider string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	removed := 0
	for _, r := range s.records {
		if r.Provider == provider && r.Status == domain.IngestionFailed && r.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return removed, nil
}
