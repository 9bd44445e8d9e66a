package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
)

// ingestionStore implements driven.IngestionStore.
type ingestionStore struct {
	store *Store
}

var _ driven.IngestionStore = (*ingestionStore)(nil)

const ingestionColumns = `id, project_id, provider, file_id, version_hint, blob_key,
	display_name, status, error, created_at, completed_at`

// Insert stores a new record.
func (s *ingestionStore) Insert(ctx context.Context, record *domain.IngestionRecord) error {
	if record == nil || record.ProjectID == "" || record.FileID == "" {
		return domain.ErrInvalidInput
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingestion_records (`+ingestionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.ProjectID, record.Provider, record.FileID, record.VersionHint,
		nullString(record.BlobKey), record.DisplayName, string(record.Status),
		nullString(record.Error), formatTime(record.CreatedAt), formatNullableTime(record.CompletedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: file %s version %s already ingested",
			domain.ErrAlreadyExists, record.FileID, record.VersionHint)
	}
	if err != nil {
		return fmt.Errorf("inserting ingestion record: %w", err)
	}
	return nil
}

// HasSucceeded reports whether the file version was already ingested.
func (s *ingestionStore) HasSucceeded(ctx context.Context, projectID, provider, fileID, versionHint string) (bool, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ingestion_records
		WHERE project_id = ? AND provider = ? AND file_id = ? AND version_hint = ? AND status = 'succeeded'
	`, projectID, provider, fileID, versionHint).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking ingestion records: %w", err)
	}
	return n > 0, nil
}

// FindLatestVersion returns the most recent record for a file version.
func (s *ingestionStore) FindLatestVersion(ctx context.Context, projectID, provider, fileID, versionHint string) (*domain.IngestionRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+ingestionColumns+` FROM ingestion_records
		WHERE project_id = ? AND provider = ? AND file_id = ? AND version_hint = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, projectID, provider, fileID, versionHint)
	return optional(scanIngestionRecord(row))
}

// Complete moves a queued record to a terminal status.
func (s *ingestionStore) Complete(ctx context.Context, id string, status domain.IngestionStatus, errMsg string, completedAt time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal status", domain.ErrInvalidInput, status)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE ingestion_records SET status = ?, error = ?, completed_at = ?
		WHERE id = ? AND status = 'queued'
	`, string(status), nullString(errMsg), formatNullableTime(completedAt), id)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: another record already succeeded", domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("completing ingestion record: %w", err)
	}
	if err := requireAffected(res); !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	var current string
	err = s.store.db.QueryRowContext(ctx, `SELECT status FROM ingestion_records WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading ingestion record: %w", err)
	}
	return fmt.Errorf("%w: record %s is %s", domain.ErrAlreadyCompleted, id, current)
}

// FindByBlob returns the most recent record for the display name and blob key.
func (s *ingestionStore) FindByBlob(ctx context.Context, provider, displayName, blobKey string) (*domain.IngestionRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+ingestionColumns+` FROM ingestion_records
		WHERE provider = ? AND display_name = ? AND blob_key = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, provider, displayName, blobKey)
	return optional(scanIngestionRecord(row))
}

// FindLatestByName returns the most recent record for the project and display name.
func (s *ingestionStore) FindLatestByName(ctx context.Context, provider, projectID, displayName string) (*domain.IngestionRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+ingestionColumns+` FROM ingestion_records
		WHERE provider = ? AND project_id = ? AND display_name = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, provider, projectID, displayName)
	return optional(scanIngestionRecord(row))
}

// ListByProject returns the project's records, newest first.
func (s *ingestionStore) ListByProject(ctx context.Context, projectID, provider string) ([]domain.IngestionRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+ingestionColumns+` FROM ingestion_records
		WHERE project_id = ? AND provider = ?
		ORDER BY created_at DESC, rowid DESC
	`, projectID, provider)
	if err != nil {
		return nil, fmt.Errorf("querying ingestion records: %w", err)
	}
	defer rows.Close()

	var records []domain.IngestionRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanIngestionRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ingestion records: %w", err)
	}
	return records, nil
}

// DeleteFailedBefore removes failed records created before cutoff.
func (s *ingestionStore) DeleteFailedBefore(ctx context.Context, provider string, cutoff time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM ingestion_records WHERE provider = ? AND status = 'failed' AND created_at < ?
	`, provider, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("deleting failed records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return int(n), nil
}

func scanIngestionRecord(row rowScanner) (*domain.IngestionRecord, error) {
	var r domain.IngestionRecord
	var blobKey, errMsg, completedAt sql.NullString
	var status, createdAt string

	if err := row.Scan(&r.ID, &r.ProjectID, &r.Provider, &r.FileID, &r.VersionHint, &blobKey,
		&r.DisplayName, &status, &errMsg, &createdAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning ingestion record: %w", err)
	}

	r.BlobKey = blobKey.String
	r.Status = domain.IngestionStatus(status)
	r.Error = errMsg.String
	r.CreatedAt = parseTime(createdAt)
	r.CompletedAt = parseNullableTime(completedAt)
	return &r, nil
}
