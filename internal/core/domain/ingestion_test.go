package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestionStatus_IsTerminal(t *testing.T) {
	assert.False(t, IngestionQueued.IsTerminal())
	assert.True(t, IngestionSucceeded.IsTerminal())
	assert.True(t, IngestionFailed.IsTerminal())
}

func TestIngestionRecord_IsOversizeFailure(t *testing.T) {
	assert.True(t, IngestionRecord{Status: IngestionFailed, Error: OversizeError("41 MB")}.IsOversizeFailure())
	assert.False(t, IngestionRecord{Status: IngestionFailed, Error: "submit: rejected"}.IsOversizeFailure())
	assert.False(t, IngestionRecord{Status: IngestionQueued, Error: OversizeError("41 MB")}.IsOversizeFailure())
}

func TestLatestPerVersion(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []IngestionRecord{
		{ID: "1", FileID: "f1", VersionHint: "v1", Status: IngestionFailed, CreatedAt: base},
		{ID: "2", FileID: "f1", VersionHint: "v1", Status: IngestionSucceeded, CreatedAt: base.Add(time.Hour)},
		{ID: "3", FileID: "f1", VersionHint: "v2", Status: IngestionQueued, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "4", FileID: "f2", VersionHint: "v1", Status: IngestionFailed, CreatedAt: base.Add(30 * time.Minute)},
	}

	latest := LatestPerVersion(records)
	require.Len(t, latest, 3)

	ids := []string{latest[0].ID, latest[1].ID, latest[2].ID}
	assert.Equal(t, []string{"3", "2", "4"}, ids)
}

func TestLatestPerVersion_Empty(t *testing.T) {
	assert.Empty(t, LatestPerVersion(nil))
}
