package domain

import (
	"sort"
	"strings"
	"time"
)

// IngestionStatus is the lifecycle state of an ingestion record.
type IngestionStatus string

// Ingestion statuses. Queued is the only non-terminal state.
const (
	IngestionQueued    IngestionStatus = "queued"
	IngestionSucceeded IngestionStatus = "succeeded"
	IngestionFailed    IngestionStatus = "failed"
)

// IsTerminal returns true once the record can no longer change.
func (s IngestionStatus) IsTerminal() bool {
	return s == IngestionSucceeded || s == IngestionFailed
}

// IngestionRecord tracks one attempt to ingest one file version.
type IngestionRecord struct {
	ID          string
	ProjectID   string
	Provider    string
	FileID      string
	VersionHint string
	BlobKey     string
	DisplayName string
	Status      IngestionStatus
	Error       string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// oversizePrefix marks failures caused by the size ceiling.
const oversizePrefix = "file too large: "

// OversizeError formats the error text of a size-ceiling failure.
func OversizeError(detail string) string {
	return oversizePrefix + detail
}

// IsOversizeFailure reports whether the record failed on the size ceiling.
// Such a failure is final for its file version.
func (r IngestionRecord) IsOversizeFailure() bool {
	return r.Status == IngestionFailed && strings.HasPrefix(r.Error, oversizePrefix)
}

// IngestionCallback is the pipeline's report on a submitted job.
type IngestionCallback struct {
	ProjectID   string
	DisplayName string
	BlobKey     string
	Success     bool
	Error       string
}

// LatestPerVersion keeps the newest record for each (file, version) pair,
// ordered newest first.
func LatestPerVersion(records []IngestionRecord) []IngestionRecord {
	type key struct{ file, version string }

	sorted := make([]IngestionRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	seen := make(map[key]bool, len(sorted))
	latest := make([]IngestionRecord, 0, len(sorted))
	for _, r := range sorted {
		k := key{r.FileID, r.VersionHint}
		if seen[k] {
			continue
		}
		seen[k] = true
		latest = append(latest, r)
	}
	return latest
}
