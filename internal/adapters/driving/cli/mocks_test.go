package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driving"
)

type mockTokens struct {
	driving.TokenManager
	state         string
	code, owner   string
	completeOK    bool
	completeErr   error
	attachProject string
	attachErr     error
	cleanedTokens int
}

func (m *mockTokens) BeginAuthorization(owner string) (string, error) {
	m.state = owner
	return "https://accounts.example.com/auth?state=sealed-" + owner, nil
}

func (m *mockTokens) CompleteAuthorization(_ context.Context, code, owner string) (bool, error) {
	m.code, m.owner = code, owner
	return m.completeOK, m.completeErr
}

func (m *mockTokens) AttachToProject(_ context.Context, projectID, owner string) (*domain.Integration, error) {
	m.attachProject, m.owner = projectID, owner
	if m.attachErr != nil {
		return nil, m.attachErr
	}
	return &domain.Integration{ProjectID: projectID, AccountEmail: "drive@example.com"}, nil
}

func (m *mockTokens) CleanupTempTokens(context.Context) (int, error) {
	return m.cleanedTokens, nil
}

type mockLister struct {
	files  map[string]domain.FileMetadata
	list   []domain.FileMetadata
	folder string
}

func (m *mockLister) ListFiles(_ context.Context, _, folderID string) ([]domain.FileMetadata, error) {
	m.folder = folderID
	return m.list, nil
}

func (m *mockLister) GetFile(_ context.Context, _, fileID string) (*domain.FileMetadata, error) {
	f, ok := m.files[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

type mockProjects struct {
	driving.ProjectService
	created  []string
	admins   []string
	projects []domain.Project
	group    string
	added    bool
	err      error
}

func (m *mockProjects) Create(_ context.Context, name string, admins []string) (*domain.Project, error) {
	m.created = append(m.created, name)
	m.admins = admins
	return &domain.Project{ID: "p-1", Name: name, Admins: admins}, nil
}

func (m *mockProjects) Get(_ context.Context, id string) (*domain.Project, error) {
	for i := range m.projects {
		if m.projects[i].ID == id {
			return &m.projects[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockProjects) List(context.Context) ([]domain.Project, error) {
	return m.projects, nil
}

func (m *mockProjects) ProvisionGroup(context.Context, string) (string, error) {
	return m.group, m.err
}

func (m *mockProjects) DeprovisionGroup(context.Context, string) error {
	return m.err
}

func (m *mockProjects) EnsureGroupAdmin(context.Context, string) (bool, error) {
	return m.added, m.err
}

func (m *mockProjects) GroupFiles(context.Context, string) ([]domain.FileMetadata, error) {
	return []domain.FileMetadata{{ID: "g1", Name: "shared.pdf", MIMEType: "application/pdf"}}, m.err
}

type mockSelections struct {
	saved []domain.SelectedItem
	owner string
}

func (m *mockSelections) SaveSelections(_ context.Context, projectID, owner string, items []domain.SelectedItem) (*driving.SyncReport, error) {
	m.saved, m.owner = items, owner
	return &driving.SyncReport{ProjectID: projectID, Seen: len(items), Queued: len(items)}, nil
}

func (m *mockSelections) ListSelections(context.Context, string) ([]domain.SelectedItem, error) {
	return m.saved, nil
}

type mockSyncOrchestrator struct {
	synced   []string
	syncErr  error
	syncAll  domain.RunCounts
	status   *driving.SyncStatus
}

func (m *mockSyncOrchestrator) Sync(_ context.Context, projectID string) (*driving.SyncReport, error) {
	m.synced = append(m.synced, projectID)
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return &driving.SyncReport{ProjectID: projectID, Seen: 3, Skipped: 1, Queued: 2}, nil
}

func (m *mockSyncOrchestrator) SyncItems(ctx context.Context, projectID string, _ []string) (*driving.SyncReport, error) {
	return m.Sync(ctx, projectID)
}

func (m *mockSyncOrchestrator) SyncAll(context.Context) (domain.RunCounts, error) {
	return m.syncAll, nil
}

func (m *mockSyncOrchestrator) Status(context.Context, string) (*driving.SyncStatus, error) {
	return m.status, nil
}

type mockTracker struct {
	records []domain.IngestionRecord
	cleaned int
}

func (m *mockTracker) HandleCallback(context.Context, domain.IngestionCallback) (*domain.IngestionRecord, error) {
	return nil, nil
}

func (m *mockTracker) IngestionStatus(context.Context, string) ([]domain.IngestionRecord, error) {
	return m.records, nil
}

func (m *mockTracker) CleanupFailed(context.Context) (int, error) {
	return m.cleaned, nil
}

type mockConfig struct {
	path   string
	values map[string]any
}

func (m *mockConfig) Path() string { return m.path }

func (m *mockConfig) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfig) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockConfig) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}

// withServices installs services for one test and restores the previous
// state afterwards.
func withServices(t *testing.T, s *Services) {
	t.Helper()
	oldBootstrap := bootstrap
	bootstrap = nil
	SetServices(s)
	t.Cleanup(func() {
		bootstrap = oldBootstrap
		SetServices(&Services{})
		authCode, authOpen = "", false
		selectRecursive = false
		serveAddr = ""
		tasksHistory = 10
	})
}

type mockScheduler struct {
	driving.Scheduler
	tasks   []domain.ScheduledTask
	history []domain.TaskResult
	taskID  string
	limit   int
}

func (m *mockScheduler) Tasks(context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, nil
}

func (m *mockScheduler) History(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.taskID, m.limit = taskID, limit
	return m.history, nil
}

// execute runs the root command and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}
