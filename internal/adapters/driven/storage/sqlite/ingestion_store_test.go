package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aganswers/drivesync/internal/core/domain"
)

func newRecord(fileID, version, name, blobKey string, created time.Time) *domain.IngestionRecord {
	return &domain.IngestionRecord{
		ProjectID:   "p1",
		Provider:    domain.ProviderGoogleDrive,
		FileID:      fileID,
		VersionHint: version,
		BlobKey:     blobKey,
		DisplayName: name,
		Status:      domain.IngestionQueued,
		CreatedAt:   created,
	}
}

// ==================== Ingestion Store Tests ====================

func TestIngestionStore_InsertAndComplete(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	records := store.IngestionStore()

	rec := newRecord("f1", "v1", "a.pdf", "projects/p1/drive_1.pdf", time.Now())
	require.NoError(t, records.Insert(ctx, rec))
	assert.NotEmpty(t, rec.ID)

	done, err := records.HasSucceeded(ctx, "p1", domain.ProviderGoogleDrive, "f1", "v1")
	require.NoError(t, err)
	assert.False(t, done)

	completed := time.Now()
	require.NoError(t, records.Complete(ctx, rec.ID, domain.IngestionSucceeded, "", completed))

	done, err = records.HasSucceeded(ctx, "p1", domain.ProviderGoogleDrive, "f1", "v1")
	require.NoError(t, err)
	assert.True(t, done)

	got, err := records.FindByBlob(ctx, domain.ProviderGoogleDrive, "a.pdf", "projects/p1/drive_1.pdf")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.IngestionSucceeded, got.Status)
	assert.False(t, got.CompletedAt.IsZero())
}

func TestIngestionStore_Complete_RejectsSecondSuccess(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	records := store.IngestionStore()
	now := time.Now()

	first := newRecord("f1", "v1", "a.pdf", "k1", now)
	second := newRecord("f1", "v1", "a.pdf", "k2", now.Add(time.Second))
	require.NoError(t, records.Insert(ctx, first))
	require.NoError(t, records.Insert(ctx, second))

	require.NoError(t, records.Complete(ctx, first.ID, domain.IngestionSucceeded, "", now))
	err := records.Complete(ctx, second.ID, domain.IngestionSucceeded, "", now)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	require.NoError(t, records.Complete(ctx, second.ID, domain.IngestionFailed, "duplicate", now))
}

func TestIngestionStore_Complete_TerminalRecordIsUnchanged(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	records := store.IngestionStore()
	rec := newRecord("f1", "v1", "a.pdf", "k1", time.Now())
	require.NoError(t, records.Insert(ctx, rec))
	require.NoError(t, records.Complete(ctx, rec.ID, domain.IngestionSucceeded, "", time.Now()))

	err := records.Complete(ctx, rec.ID, domain.IngestionFailed, "late", time.Now())
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)

	got, err := records.FindByBlob(ctx, domain.ProviderGoogleDrive, "a.pdf", "k1")
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionSucceeded, got.Status)
	assert.Empty(t, got.Error)

	done, err := records.HasSucceeded(ctx, "p1", domain.ProviderGoogleDrive, "f1", "v1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestIngestionStore_FindLatestVersion(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	records := store.IngestionStore()
	base := time.Now().Add(-time.Hour)

	older := newRecord("f1", "v1", "a.pdf", "k1", base)
	newer := newRecord("f1", "v1", "a.pdf", "k2", base.Add(time.Minute))
	other := newRecord("f1", "v2", "a.pdf", "k3", base.Add(2*time.Minute))
	for _, r := range []*domain.IngestionRecord{older, newer, other} {
		require.NoError(t, records.Insert(ctx, r))
	}

	got, err := records.FindLatestVersion(ctx, "p1", domain.ProviderGoogleDrive, "f1", "v1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)

	got, err = records.FindLatestVersion(ctx, "p1", domain.ProviderGoogleDrive, "f1", "v9")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIngestionStore_Complete_Validation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	err := store.IngestionStore().Complete(ctx, "x", domain.IngestionQueued, "", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.IngestionStore().Complete(ctx, "missing", domain.IngestionFailed, "", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestionStore_FindLatest(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	records := store.IngestionStore()
	base := time.Now().Add(-time.Hour)

	older := newRecord("f1", "v1", "a.pdf", "k", base)
	newer := newRecord("f1", "v2", "a.pdf", "k", base.Add(time.Minute))
	require.NoError(t, records.Insert(ctx, older))
	require.NoError(t, records.Insert(ctx, newer))

	got, err := records.FindByBlob(ctx, domain.ProviderGoogleDrive, "a.pdf", "k")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	got, err = records.FindLatestByName(ctx, domain.ProviderGoogleDrive, "p1", "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	got, err = records.FindByBlob(ctx, domain.ProviderGoogleDrive, "a.pdf", "other")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIngestionStore_ListAndDeleteFailed(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	records := store.IngestionStore()
	now := time.Now()

	oldFailed := newRecord("f1", "v1", "a.pdf", "k1", now.Add(-40*24*time.Hour))
	oldFailed.Status = domain.IngestionFailed
	recentFailed := newRecord("f2", "v1", "b.pdf", "k2", now.Add(-time.Hour))
	recentFailed.Status = domain.IngestionFailed
	oldQueued := newRecord("f3", "v1", "c.pdf", "k3", now.Add(-40*24*time.Hour))
	otherProvider := newRecord("f4", "v1", "d.pdf", "k4", now.Add(-40*24*time.Hour))
	otherProvider.Provider = "dropbox"
	otherProvider.Status = domain.IngestionFailed

	for _, r := range []*domain.IngestionRecord{oldFailed, recentFailed, oldQueued, otherProvider} {
		require.NoError(t, records.Insert(ctx, r))
	}

	removed, err := records.DeleteFailedBefore(ctx, domain.ProviderGoogleDrive, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	list, err := records.ListByProject(ctx, "p1", domain.ProviderGoogleDrive)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, recentFailed.ID, list[0].ID)
	assert.Equal(t, oldQueued.ID, list[1].ID)
}
