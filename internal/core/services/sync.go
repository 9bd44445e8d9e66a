package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
	"github.com/aganswers/drivesync/internal/core/ports/driving"
	"github.com/aganswers/drivesync/internal/logger"
)

// Ensure SyncOrchestrator implements the interfaces.
var (
	_ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)
	_ driving.IngestionTracker = (*SyncOrchestrator)(nil)
)

// duplicateVersionError is recorded when a callback reports success for a
// file version that another record already holds as succeeded.
const duplicateVersionError = "duplicate: this file version was already ingested"

// SyncConfig tunes a sync pass.
type SyncConfig struct {
	// MaxFileSize is the per-file ceiling in bytes. Zero disables it.
	MaxFileSize int64
	// MaxFolderDepth bounds expansion of recursive folder selections.
	MaxFolderDepth int
	// IncludeGroupShared adds files shared with the project's group.
	IncludeGroupShared bool
	// FailedRetention is how long failed records survive cleanup.
	FailedRetention time.Duration
}

// SyncConfigFromSettings derives the sync configuration from settings.
func SyncConfigFromSettings(s domain.Settings) SyncConfig {
	return SyncConfig{
		MaxFileSize:        s.Sync.MaxFileSizeBytes(),
		MaxFolderDepth:     s.Sync.MaxFolderDepth,
		IncludeGroupShared: s.Sync.IncludeGroupShared,
		FailedRetention:    s.Scheduler.FailedRetention,
	}
}

// fileOutcome is the result of processing one file.
type fileOutcome int

const (
	outcomeSkipped fileOutcome = iota
	outcomeQueued
	outcomeFailed
)

// SyncOrchestrator moves changed Drive files into the ingestion pipeline
// and tracks them until the pipeline reports back.
type SyncOrchestrator struct {
	projects     driven.ProjectStore
	integrations driven.IntegrationStore
	selections   driven.SelectionStore
	records      driven.IngestionStore
	lister       driving.DriveLister
	content      driven.ContentFetcher
	groups       driven.GroupDirectory
	blobs        driven.BlobStore
	pipeline     driven.IngestionPipeline
	cfg          SyncConfig
	now          func() time.Time

	// Status tracking; an entry doubles as the project's sync lease.
	mu          sync.RWMutex
	activeSyncs map[string]*driving.SyncStatus
}

// NewSyncOrchestrator creates a new sync orchestrator.
// groups is optional; without it group-shared files are not synced.
// A pass fails with domain.ErrConfiguration if any other collaborator
// is nil, which lets callback handling run without Drive access.
func NewSyncOrchestrator(
	projects driven.ProjectStore,
	integrations driven.IntegrationStore,
	selections driven.SelectionStore,
	records driven.IngestionStore,
	lister driving.DriveLister,
	content driven.ContentFetcher,
	groups driven.GroupDirectory,
	blobs driven.BlobStore,
	pipeline driven.IngestionPipeline,
	cfg SyncConfig,
) *SyncOrchestrator {
	if cfg.MaxFolderDepth < 1 {
		cfg.MaxFolderDepth = 1
	}
	return &SyncOrchestrator{
		projects:     projects,
		integrations: integrations,
		selections:   selections,
		records:      records,
		lister:       lister,
		content:      content,
		groups:       groups,
		blobs:        blobs,
		pipeline:     pipeline,
		cfg:          cfg,
		now:          time.Now,
		activeSyncs:  make(map[string]*driving.SyncStatus),
	}
}

// Sync runs one pass over every selected item of the project, plus the
// files shared with its group.
func (o *SyncOrchestrator) Sync(ctx context.Context, projectID string) (*driving.SyncReport, error) {
	return o.run(ctx, projectID, nil)
}

// SyncItems runs one pass restricted to the given selected item IDs.
func (o *SyncOrchestrator) SyncItems(ctx context.Context, projectID string, itemIDs []string) (*driving.SyncReport, error) {
	only := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		only[id] = true
	}
	return o.run(ctx, projectID, only)
}

// run executes a sync pass. A nil filter selects everything.
func (o *SyncOrchestrator) run(ctx context.Context, projectID string, only map[string]bool) (*driving.SyncReport, error) {
	if o.lister == nil || o.content == nil || o.blobs == nil || o.pipeline == nil {
		return nil, fmt.Errorf("%w: sync dependencies are missing", domain.ErrConfiguration)
	}

	status := &driving.SyncStatus{ProjectID: projectID, Running: true}
	if !o.acquire(projectID, status) {
		return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrSyncInProgress)
	}
	defer o.release(projectID)

	report := &driving.SyncReport{ProjectID: projectID}

	integ, err := o.integrations.Get(ctx, projectID, domain.ProviderGoogleDrive)
	if err != nil {
		return nil, fmt.Errorf("get integration: %w", err)
	}
	if integ == nil {
		logger.Info("project %s has no Drive integration, skipping", projectID)
		return report, nil
	}

	items, err := o.selections.List(ctx, integ.ID)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	if only != nil {
		filtered := items[:0]
		for _, item := range items {
			if only[item.ID] {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	logger.Section("Sync " + projectID)
	files := o.collectFiles(ctx, projectID, items, only == nil)

	for _, file := range files {
		report.Seen++
		outcome, err := o.processFile(ctx, projectID, file)
		if err != nil {
			report.Errors++
			logger.Error("project %s: file %s (%s): %v", projectID, file.ID, file.Name, err)
			o.updateStatus(projectID, true)
			continue
		}
		switch outcome {
		case outcomeSkipped:
			report.Skipped++
		case outcomeQueued:
			report.Queued++
		case outcomeFailed:
			report.Failed++
		}
		o.updateStatus(projectID, outcome == outcomeFailed)
	}

	logger.Info("project %s: %d seen, %d skipped, %d queued, %d failed, %d errors",
		projectID, report.Seen, report.Skipped, report.Queued, report.Failed, report.Errors)
	return report, nil
}

// fileSet collects files in discovery order, deduplicated by ID.
type fileSet struct {
	seen  map[string]bool
	files []domain.FileMetadata
}

func (s *fileSet) add(f domain.FileMetadata) {
	if s.seen[f.ID] {
		return
	}
	s.seen[f.ID] = true
	s.files = append(s.files, f)
}

// collectFiles resolves selected items into the files to consider.
// A failing item is logged and skipped.
func (o *SyncOrchestrator) collectFiles(ctx context.Context, projectID string, items []domain.SelectedItem, withGroup bool) []domain.FileMetadata {
	set := &fileSet{seen: make(map[string]bool)}

	for _, item := range items {
		switch item.Type {
		case domain.ItemTypeFolder:
			if err := o.expandFolder(ctx, projectID, item.ExternalID, 1, item.Recursive, set); err != nil {
				logger.Error("project %s: list folder %s (%s): %v", projectID, item.ExternalID, item.Name, err)
			}
		case domain.ItemTypeFile:
			meta, err := o.lister.GetFile(ctx, projectID, item.ExternalID)
			if err != nil {
				logger.Error("project %s: get file %s (%s): %v", projectID, item.ExternalID, item.Name, err)
				continue
			}
			if meta.IsFolder {
				if err := o.expandFolder(ctx, projectID, meta.ID, 1, item.Recursive, set); err != nil {
					logger.Error("project %s: list folder %s: %v", projectID, meta.ID, err)
				}
				continue
			}
			set.add(*meta)
		}
	}

	if withGroup {
		for _, f := range o.groupFiles(ctx, projectID) {
			set.add(f)
		}
	}
	return set.files
}

// expandFolder adds the folder's files. Sub-folders are followed only for
// recursive selections and only down to MaxFolderDepth.
func (o *SyncOrchestrator) expandFolder(ctx context.Context, projectID, folderID string, depth int, recursive bool, set *fileSet) error {
	children, err := o.lister.ListFiles(ctx, projectID, folderID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if !child.IsFolder {
			set.add(child)
			continue
		}
		if !recursive || depth >= o.cfg.MaxFolderDepth {
			continue
		}
		if err := o.expandFolder(ctx, projectID, child.ID, depth+1, recursive, set); err != nil {
			logger.Error("project %s: list folder %s (%s): %v", projectID, child.ID, child.Name, err)
		}
	}
	return nil
}

// groupFiles returns non-folder files shared with the project's group.
func (o *SyncOrchestrator) groupFiles(ctx context.Context, projectID string) []domain.FileMetadata {
	if o.groups == nil || !o.cfg.IncludeGroupShared {
		return nil
	}
	project, err := o.projects.Get(ctx, projectID)
	if err != nil {
		logger.Warn("project %s: cannot load project for group files: %v", projectID, err)
		return nil
	}
	if project.GroupEmail == "" {
		return nil
	}

	shared, err := o.groups.ListFilesSharedWithGroup(ctx, project.GroupEmail)
	if err != nil {
		logger.Error("project %s: list files shared with %s: %v", projectID, project.GroupEmail, err)
		return nil
	}
	files := make([]domain.FileMetadata, 0, len(shared))
	for _, f := range shared {
		if !f.IsFolder {
			files = append(files, f)
		}
	}
	return files
}

// processFile ingests one file version unless it already succeeded.
func (o *SyncOrchestrator) processFile(ctx context.Context, projectID string, file domain.FileMetadata) (fileOutcome, error) {
	version := file.VersionHint()

	done, err := o.records.HasSucceeded(ctx, projectID, domain.ProviderGoogleDrive, file.ID, version)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("check ingestion history: %w", err)
	}
	if done {
		logger.Debug("project %s: %s unchanged (version %s)", projectID, file.Name, version)
		return outcomeSkipped, nil
	}

	latest, err := o.records.FindLatestVersion(ctx, projectID, domain.ProviderGoogleDrive, file.ID, version)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("check ingestion history: %w", err)
	}
	if latest != nil && latest.IsOversizeFailure() {
		logger.Debug("project %s: %s already rejected as too large (version %s)", projectID, file.Name, version)
		return outcomeSkipped, nil
	}

	if o.cfg.MaxFileSize > 0 && file.Size > o.cfg.MaxFileSize {
		return o.recordFailure(ctx, projectID, file, version, sizeError(file.Size, o.cfg.MaxFileSize))
	}

	content, err := o.content.FetchContent(ctx, file.ID, file.MIMEType)
	if errors.Is(err, domain.ErrFileTooLarge) {
		return o.recordFailure(ctx, projectID, file, version, limitError(o.cfg.MaxFileSize))
	}
	if err != nil {
		return outcomeSkipped, fmt.Errorf("content could not be fetched: %w", err)
	}
	if o.cfg.MaxFileSize > 0 && int64(len(content)) > o.cfg.MaxFileSize {
		return o.recordFailure(ctx, projectID, file, version, sizeError(int64(len(content)), o.cfg.MaxFileSize))
	}

	ext := domain.ExtensionFor(file.Name, file.MIMEType)
	key := BlobKey(projectID, ext)
	if err := o.blobs.Put(ctx, key, content, contentTypeFor(ext)); err != nil {
		return o.recordFailure(ctx, projectID, file, version, fmt.Sprintf("stage blob: %v", err))
	}

	record := &domain.IngestionRecord{
		ProjectID:   projectID,
		Provider:    domain.ProviderGoogleDrive,
		FileID:      file.ID,
		VersionHint: version,
		BlobKey:     key,
		DisplayName: file.Name,
		Status:      domain.IngestionQueued,
		CreatedAt:   o.now(),
	}
	if err := o.records.Insert(ctx, record); err != nil {
		return outcomeSkipped, fmt.Errorf("insert ingestion record: %w", err)
	}

	job := driven.IngestionJob{ProjectID: projectID, DisplayName: file.Name, BlobKey: key}
	if err := o.pipeline.Submit(ctx, job); err != nil {
		logger.Error("project %s: submit %s (%s): %v", projectID, file.ID, file.Name, err)
		if cerr := o.records.Complete(ctx, record.ID, domain.IngestionFailed, fmt.Sprintf("submit: %v", err), o.now()); cerr != nil {
			return outcomeSkipped, fmt.Errorf("mark submission failure: %w", cerr)
		}
		return outcomeFailed, nil
	}

	logger.Debug("project %s: queued %s as %s", projectID, file.Name, key)
	return outcomeQueued, nil
}

// recordFailure writes a terminal failed record for a file version.
func (o *SyncOrchestrator) recordFailure(ctx context.Context, projectID string, file domain.FileMetadata, version, msg string) (fileOutcome, error) {
	logger.Warn("project %s: file %s (%s) failed: %s", projectID, file.ID, file.Name, msg)
	now := o.now()
	record := &domain.IngestionRecord{
		ProjectID:   projectID,
		Provider:    domain.ProviderGoogleDrive,
		FileID:      file.ID,
		VersionHint: version,
		DisplayName: file.Name,
		Status:      domain.IngestionFailed,
		Error:       msg,
		CreatedAt:   now,
		CompletedAt: now,
	}
	if err := o.records.Insert(ctx, record); err != nil {
		return outcomeSkipped, fmt.Errorf("insert failed record: %w", err)
	}
	return outcomeFailed, nil
}

const mb = 1024 * 1024

func sizeError(size, limit int64) string {
	return domain.OversizeError(fmt.Sprintf("file size %.1f MB exceeds the %.1f MB limit",
		float64(size)/mb, float64(limit)/mb))
}

// limitError is used when the provider stopped the download at the ceiling.
func limitError(limit int64) string {
	return domain.OversizeError(fmt.Sprintf("content exceeds the %.1f MB limit", float64(limit)/mb))
}

// BlobKey returns a fresh staged-blob key scoped to the project.
func BlobKey(projectID, ext string) string {
	return fmt.Sprintf("projects/%s/drive_%s%s", projectID, uuid.NewString(), ext)
}

func contentTypeFor(ext string) string {
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// SyncAll syncs every project with a Drive integration. A failing project
// is logged and the loop moves on.
func (o *SyncOrchestrator) SyncAll(ctx context.Context) (domain.RunCounts, error) {
	var total domain.RunCounts
	integrations, err := o.integrations.ListByProvider(ctx, domain.ProviderGoogleDrive)
	if err != nil {
		return total, fmt.Errorf("list integrations: %w", err)
	}

	for _, integ := range integrations {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		report, err := o.Sync(ctx, integ.ProjectID)
		if err != nil {
			if errors.Is(err, domain.ErrSyncInProgress) {
				logger.Info("project %s is already syncing, skipping", integ.ProjectID)
				continue
			}
			logger.Error("sync project %s: %v", integ.ProjectID, err)
			continue
		}
		total.Projects++
		total.Seen += report.Seen
		total.Queued += report.Queued
		total.Skipped += report.Skipped
		total.Failed += report.Failed
		total.Errors += report.Errors
	}
	return total, nil
}

// Status returns the current sync status for a project.
func (o *SyncOrchestrator) Status(_ context.Context, projectID string) (*driving.SyncStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.activeSyncs[projectID]; ok {
		statusCopy := *status
		return &statusCopy, nil
	}
	return &driving.SyncStatus{ProjectID: projectID}, nil
}

// HandleCallback applies the pipeline's report to the matching record:
// first by display name and blob key, then the project's latest record
// with that display name. A record that already reached a terminal
// status is returned unchanged.
func (o *SyncOrchestrator) HandleCallback(ctx context.Context, cb domain.IngestionCallback) (*domain.IngestionRecord, error) {
	if cb.ProjectID == "" || cb.DisplayName == "" {
		return nil, fmt.Errorf("%w: project and display name are required", domain.ErrInvalidInput)
	}

	var record *domain.IngestionRecord
	var err error
	if cb.BlobKey != "" {
		if record, err = o.records.FindByBlob(ctx, domain.ProviderGoogleDrive, cb.DisplayName, cb.BlobKey); err != nil {
			return nil, fmt.Errorf("find record by blob: %w", err)
		}
	}
	if record == nil {
		if record, err = o.records.FindLatestByName(ctx, domain.ProviderGoogleDrive, cb.ProjectID, cb.DisplayName); err != nil {
			return nil, fmt.Errorf("find record by name: %w", err)
		}
	}
	if record == nil {
		logger.Warn("callback for project %s %q matches no ingestion record", cb.ProjectID, cb.DisplayName)
		return nil, nil
	}

	if record.Status.IsTerminal() {
		logger.Warn("callback for project %s %q ignored: record %s is already %s",
			cb.ProjectID, cb.DisplayName, record.ID, record.Status)
		return record, nil
	}

	status, msg := domain.IngestionSucceeded, ""
	if !cb.Success {
		status, msg = domain.IngestionFailed, cb.Error
	}
	now := o.now()

	err = o.records.Complete(ctx, record.ID, status, msg, now)
	if errors.Is(err, domain.ErrAlreadyExists) {
		status, msg = domain.IngestionFailed, duplicateVersionError
		err = o.records.Complete(ctx, record.ID, status, msg, now)
	}
	if errors.Is(err, domain.ErrAlreadyCompleted) {
		logger.Warn("callback for project %s %q ignored: record %s completed concurrently",
			cb.ProjectID, cb.DisplayName, record.ID)
		return record, nil
	}
	if err != nil {
		return nil, fmt.Errorf("complete record %s: %w", record.ID, err)
	}

	record.Status = status
	record.Error = msg
	record.CompletedAt = now
	logger.Info("project %s: %q ingestion %s", record.ProjectID, record.DisplayName, status)
	return record, nil
}

// IngestionStatus returns the latest record per file version, newest first.
func (o *SyncOrchestrator) IngestionStatus(ctx context.Context, projectID string) ([]domain.IngestionRecord, error) {
	records, err := o.records.ListByProject(ctx, projectID, domain.ProviderGoogleDrive)
	if err != nil {
		return nil, fmt.Errorf("list ingestion records: %w", err)
	}
	return domain.LatestPerVersion(records), nil
}

// CleanupFailed removes failed records older than the retention window.
func (o *SyncOrchestrator) CleanupFailed(ctx context.Context) (int, error) {
	if o.cfg.FailedRetention <= 0 {
		return 0, nil
	}
	removed, err := o.records.DeleteFailedBefore(ctx, domain.ProviderGoogleDrive, o.now().Add(-o.cfg.FailedRetention))
	if err != nil {
		return 0, fmt.Errorf("delete failed records: %w", err)
	}
	if removed > 0 {
		logger.Info("removed %d failed ingestion records", removed)
	}
	return removed, nil
}

// acquire takes the project's sync lease.
func (o *SyncOrchestrator) acquire(projectID string, status *driving.SyncStatus) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.activeSyncs[projectID]; busy {
		return false
	}
	o.activeSyncs[projectID] = status
	return true
}

func (o *SyncOrchestrator) release(projectID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeSyncs, projectID)
}

func (o *SyncOrchestrator) updateStatus(projectID string, failed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.activeSyncs[projectID]; ok {
		status.FilesProcessed++
		if failed {
			status.ErrorCount++
		}
	}
}
