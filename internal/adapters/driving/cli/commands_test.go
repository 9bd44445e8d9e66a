package cli

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driving"
)

func TestAuthURL(t *testing.T) {
	tokens := &mockTokens{}
	withServices(t, &Services{Tokens: tokens})

	out, err := execute(t, "auth", "url", "--owner", "owner@example.com")

	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", tokens.state)
	assert.Contains(t, out, "https://accounts.example.com/auth?state=sealed-owner@example.com")
}

func TestAuthURL_Open(t *testing.T) {
	withServices(t, &Services{Tokens: &mockTokens{}})
	var opened string
	old := openBrowser
	openBrowser = func(url string) error { opened = url; return nil }
	defer func() { openBrowser = old }()

	_, err := execute(t, "auth", "url", "--owner", "o", "--open")

	require.NoError(t, err)
	assert.Contains(t, opened, "state=sealed-o")
}

func TestAuthComplete_WithFlag(t *testing.T) {
	tokens := &mockTokens{completeOK: true}
	withServices(t, &Services{Tokens: tokens})

	out, err := execute(t, "auth", "complete", "--owner", "owner@example.com", "--code", "4/abc")

	require.NoError(t, err)
	assert.Equal(t, "4/abc", tokens.code)
	assert.Equal(t, "owner@example.com", tokens.owner)
	assert.Contains(t, out, "Authorization stored")
}

func TestAuthComplete_PromptsForCode(t *testing.T) {
	tokens := &mockTokens{completeOK: true}
	withServices(t, &Services{Tokens: tokens})
	old := codeInput
	codeInput = strings.NewReader("typed-code\n")
	defer func() { codeInput = old }()

	_, err := execute(t, "auth", "complete", "--owner", "o")

	require.NoError(t, err)
	assert.Equal(t, "typed-code", tokens.code)
}

func TestAuthComplete_Rejected(t *testing.T) {
	withServices(t, &Services{Tokens: &mockTokens{completeOK: false}})

	_, err := execute(t, "auth", "complete", "--owner", "o", "--code", "stale")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestAuthAttach(t *testing.T) {
	tokens := &mockTokens{}
	withServices(t, &Services{Tokens: tokens})

	out, err := execute(t, "auth", "attach", "andrew", "--owner", "owner@example.com")

	require.NoError(t, err)
	assert.Equal(t, "andrew", tokens.attachProject)
	assert.Contains(t, out, "Attached Drive account drive@example.com to project andrew.")
}

func TestAuthAttach_AccessDenied(t *testing.T) {
	withServices(t, &Services{Tokens: &mockTokens{attachErr: domain.ErrAccessDenied}})

	_, err := execute(t, "auth", "attach", "andrew", "--owner", "intruder@example.com")

	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestProjectAddAndList(t *testing.T) {
	projects := &mockProjects{projects: []domain.Project{
		{ID: "p-1", Name: "Andrew Farms", Admins: []string{"a@example.com"}, GroupEmail: "andrew-farms-drive@example.com"},
		{ID: "p-2", Name: "Beta", Admins: []string{"b@example.com"}},
	}}
	withServices(t, &Services{Projects: projects})

	out, err := execute(t, "project", "add", "Andrew Farms", "--admin", "a@example.com", "--admin", "c@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"Andrew Farms"}, projects.created)
	assert.Equal(t, []string{"a@example.com", "c@example.com"}, projects.admins)
	assert.Contains(t, out, "Created project Andrew Farms (p-1)")

	out, err = execute(t, "project", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "andrew-farms-drive@example.com")
	assert.Contains(t, out, "group:  -")
}

func TestProjectShow_NotFound(t *testing.T) {
	withServices(t, &Services{Projects: &mockProjects{}})

	_, err := execute(t, "project", "show", "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFiles(t *testing.T) {
	lister := &mockLister{list: []domain.FileMetadata{
		{ID: "f1", Name: "Fields", IsFolder: true, MIMEType: "application/vnd.google-apps.folder"},
		{ID: "f2", Name: "yield.csv", MIMEType: "text/csv"},
	}}
	withServices(t, &Services{Lister: lister})

	out, err := execute(t, "files", "andrew", "folder-9")

	require.NoError(t, err)
	assert.Equal(t, "folder-9", lister.folder)
	out = strings.TrimSpace(out)
	require.Len(t, strings.Split(out, "\n"), 2)
	assert.Contains(t, out, "folder  f1  Fields")
}

func TestSelect_ResolvesItemTypes(t *testing.T) {
	lister := &mockLister{files: map[string]domain.FileMetadata{
		"fold": {ID: "fold", Name: "Season", IsFolder: true},
		"doc":  {ID: "doc", Name: "Notes", MIMEType: "application/vnd.google-apps.document"},
	}}
	sel := &mockSelections{}
	withServices(t, &Services{Lister: lister, Selections: sel})

	out, err := execute(t, "select", "andrew", "fold", "doc", "--owner", "owner@example.com", "--recursive")

	require.NoError(t, err)
	require.Len(t, sel.saved, 2)
	assert.Equal(t, domain.ItemTypeFolder, sel.saved[0].Type)
	assert.True(t, sel.saved[0].Recursive)
	assert.Equal(t, domain.ItemTypeFile, sel.saved[1].Type)
	assert.False(t, sel.saved[1].Recursive)
	assert.Equal(t, "owner@example.com", sel.owner)
	assert.Contains(t, out, "Selected 2 item(s).")

	out, err = execute(t, "selections", "andrew")
	require.NoError(t, err)
	assert.Contains(t, out, "Season (recursive)")
}

func TestSelect_UnknownItem(t *testing.T) {
	withServices(t, &Services{Lister: &mockLister{}, Selections: &mockSelections{}})

	_, err := execute(t, "select", "andrew", "missing", "--owner", "o")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatus(t *testing.T) {
	tracker := &mockTracker{records: []domain.IngestionRecord{
		{FileID: "f1", DisplayName: "yield.csv", Status: domain.IngestionSucceeded, CreatedAt: time.Now()},
		{FileID: "f2", DisplayName: "big.pdf", Status: domain.IngestionFailed, Error: "file too large", CreatedAt: time.Now()},
	}}
	orch := &mockSyncOrchestrator{status: &driving.SyncStatus{Running: true, FilesProcessed: 7}}
	withServices(t, &Services{Tracker: tracker, Sync: orch})

	out, err := execute(t, "status", "andrew")

	require.NoError(t, err)
	assert.Contains(t, out, "Sync running: 7 files processed")
	assert.Contains(t, out, "yield.csv")
	assert.Contains(t, out, "(file too large)")
}

func TestGroupCommands(t *testing.T) {
	projects := &mockProjects{group: "andrew-drive@example.com", added: true}
	withServices(t, &Services{Projects: projects})

	out, err := execute(t, "group", "create", "andrew")
	require.NoError(t, err)
	assert.Contains(t, out, "andrew-drive@example.com")

	out, err = execute(t, "group", "ensure-admin", "andrew")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin added as group owner.")

	out, err = execute(t, "group", "files", "andrew")
	require.NoError(t, err)
	assert.Contains(t, out, "shared.pdf")

	out, err = execute(t, "group", "delete", "andrew")
	require.NoError(t, err)
	assert.Contains(t, out, "Group deleted.")
}

func TestGroupCreate_NotConfigured(t *testing.T) {
	withServices(t, &Services{Projects: &mockProjects{err: domain.ErrConfiguration}})

	_, err := execute(t, "group", "create", "andrew")

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestCleanup(t *testing.T) {
	withServices(t, &Services{Tracker: &mockTracker{cleaned: 3}, Tokens: &mockTokens{cleanedTokens: 2}})

	out, err := execute(t, "cleanup")

	require.NoError(t, err)
	assert.Contains(t, out, "Removed 3 failed ingestion record(s).")
	assert.Contains(t, out, "Removed 2 expired pending token(s).")
}

func TestConfigCommands(t *testing.T) {
	cfg := &mockConfig{path: "/tmp/config.toml", values: map[string]any{"ingest.url": "https://x"}}
	withServices(t, &Services{Config: cfg})

	out, err := execute(t, "config", "set", "sync.max_folder_depth", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "/tmp/config.toml")
	assert.Equal(t, int64(3), cfg.values["sync.max_folder_depth"])

	_, err = execute(t, "config", "set", "sync.include_group_shared", "false")
	require.NoError(t, err)
	assert.Equal(t, false, cfg.values["sync.include_group_shared"])

	out, err = execute(t, "config", "get", "ingest.url")
	require.NoError(t, err)
	assert.Equal(t, "https://x", strings.TrimSpace(out))

	out, err = execute(t, "config", "get")
	require.NoError(t, err)
	assert.Len(t, lines(out), 3)

	_, err = execute(t, "config", "get", "nope")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, int64(40), parseValue("40"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "t", parseValue("t"))
	assert.Equal(t, "https://x", parseValue("https://x"))
}

func TestServe_StopsWhenContextEnds(t *testing.T) {
	withServices(t, &Services{
		Tracker:  &mockTracker{},
		Settings: domain.Settings{CallbackAddr: "127.0.0.1:0"},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetArgs([]string{"serve"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetContext(context.Background())
	}()
	err := rootCmd.ExecuteContext(ctx)

	assert.NoError(t, err)
}

func TestBootstrap_InstallsServices(t *testing.T) {
	withServices(t, &Services{})
	closed := false
	bootstrap = func(_ context.Context, opts Options) (*Services, error) {
		assert.Equal(t, ":memory:", opts.DataDir)
		return &Services{
			Sync:  &mockSyncOrchestrator{syncAll: domain.RunCounts{Projects: 1}},
			Close: func() error { closed = true; return nil },
		}, nil
	}

	out, err := execute(t, "--data-dir", ":memory:", "sync")

	require.NoError(t, err)
	assert.Contains(t, out, "1 project(s) synchronised.")
	assert.True(t, closed)
	dataDir = ""
}

func TestBootstrap_Error(t *testing.T) {
	withServices(t, &Services{})
	bootstrap = func(context.Context, Options) (*Services, error) {
		return nil, errors.New("boom")
	}

	_, err := execute(t, "sync")

	assert.EqualError(t, err, "boom")
}

func TestVersion_SkipsBootstrap(t *testing.T) {
	withServices(t, &Services{})
	bootstrap = func(context.Context, Options) (*Services, error) {
		t.Fatal("bootstrap must not run for version")
		return nil, nil
	}

	_, err := execute(t, "version")

	assert.NoError(t, err)
}
