package groups

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// ==================== Fakes ====================

type fakeDirectory struct {
	taken          map[string]bool
	inserted       []string
	memberOutcomes []Outcome
	memberCalls    int
	members        map[string][]Member
	deleteOutcome  Outcome
	deleteErr      error
	patchErr       error
	patched        []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{taken: map[string]bool{}, members: map[string][]Member{}}
}

func (f *fakeDirectory) InsertGroup(_ context.Context, email, _, _ string) (Outcome, error) {
	f.inserted = append(f.inserted, email)
	if f.taken[email] {
		return OutcomeAlreadyExists, nil
	}
	f.taken[email] = true
	return OutcomeOK, nil
}

func (f *fakeDirectory) DeleteGroup(_ context.Context, _ string) (Outcome, error) {
	return f.deleteOutcome, f.deleteErr
}

func (f *fakeDirectory) InsertMember(_ context.Context, groupEmail, memberEmail, role string) (Outcome, error) {
	f.memberCalls++
	if len(f.memberOutcomes) > 0 {
		o := f.memberOutcomes[0]
		f.memberOutcomes = f.memberOutcomes[1:]
		if o == OutcomeFailed {
			return o, errors.New("boom")
		}
		return o, nil
	}
	f.members[groupEmail] = append(f.members[groupEmail], Member{Email: memberEmail, Role: role})
	return OutcomeOK, nil
}

func (f *fakeDirectory) ListMembers(_ context.Context, groupEmail string) ([]Member, error) {
	return f.members[groupEmail], nil
}

func (f *fakeDirectory) PatchSettings(_ context.Context, groupEmail string, _ GroupPolicy) error {
	f.patched = append(f.patched, groupEmail)
	return f.patchErr
}

type fakeDrive struct {
	pages    [][]domain.FileMetadata
	perms    map[string][]Permission
	permErrs map[string]error
	content  map[string][]byte
	fetchErr error
	maxSeen  int64
	// hang makes every call block until its context ends.
	hang bool
}

func (f *fakeDrive) ListFiles(ctx context.Context, query, pageToken string) ([]domain.FileMetadata, string, error) {
	if f.hang {
		<-ctx.Done()
		return nil, "", ctx.Err()
	}
	idx := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "page-%d", &idx)
	}
	next := ""
	if idx+1 < len(f.pages) {
		next = fmt.Sprintf("page-%d", idx+1)
	}
	if len(f.pages) == 0 {
		return nil, "", nil
	}
	return f.pages[idx], next, nil
}

func (f *fakeDrive) ListPermissions(_ context.Context, fileID string) ([]Permission, error) {
	if err := f.permErrs[fileID]; err != nil {
		return nil, err
	}
	return f.perms[fileID], nil
}

func (f *fakeDrive) Fetch(ctx context.Context, fileID, _ string, maxBytes int64) ([]byte, error) {
	f.maxSeen = maxBytes
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.content[fileID], nil
}

func newTestClient(dir *fakeDirectory, drv *fakeDrive) *Client {
	c := NewClient(dir, drv, Config{
		AdminEmail:  "admin@example.com",
		Domain:      "example.com",
		MaxFileSize: 1024,
		Policy:      DefaultGroupPolicy(),
	})
	c.memberRetry.Sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

// ==================== SanitizeName Tests ====================

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Test!@#$% Project", "test-project"},
		{"---leading-trailing---", "leading-trailing"},
		{"Andrew", "andrew"},
		{"Farm  2024 / North", "farm-2024-north"},
		{"already-ok", "already-ok"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestSanitizeName_Fallback(t *testing.T) {
	slug := SanitizeName("!!!")
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), slug)
	assert.Len(t, SanitizeName(""), 8)
}

func TestSanitizeName_WellFormed(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	for _, in := range []string{"A", "  spaced  out ", "x--y", "ÜBER Café", "_under_score_"} {
		assert.Regexp(t, valid, SanitizeName(in), in)
	}
}

// ==================== CreateProjectGroup Tests ====================

func TestCreateProjectGroup_FirstAttempt(t *testing.T) {
	dir := newFakeDirectory()
	c := newTestClient(dir, &fakeDrive{})

	email, err := c.CreateProjectGroup(context.Background(), "Test Project")
	require.NoError(t, err)
	assert.Equal(t, "test-project-drive@example.com", email)
	assert.Equal(t, []Member{{Email: "admin@example.com", Role: RoleOwner}}, dir.members[email])
	assert.Equal(t, []string{email}, dir.patched)
}

func TestCreateProjectGroup_CollisionAddsSuffix(t *testing.T) {
	dir := newFakeDirectory()
	dir.taken["andrew-drive@example.com"] = true
	c := newTestClient(dir, &fakeDrive{})
	c.suffix = func() string { return "0a1b2c3d" }

	email, err := c.CreateProjectGroup(context.Background(), "andrew")
	require.NoError(t, err)
	assert.Equal(t, "andrew-0a1b2c3d-drive@example.com", email)
	assert.Len(t, dir.inserted, 2)
}

func TestCreateProjectGroup_ExhaustedRetries(t *testing.T) {
	dir := newFakeDirectory()
	dir.taken["andrew-drive@example.com"] = true
	dir.taken["andrew-dup-drive@example.com"] = true
	c := newTestClient(dir, &fakeDrive{})
	c.suffix = func() string { return "dup" }

	_, err := c.CreateProjectGroup(context.Background(), "andrew")
	assert.ErrorIs(t, err, domain.ErrExhaustedRetries)
	assert.Len(t, dir.inserted, maxCreateAttempts)
}

func TestCreateProjectGroup_RetriesMemberUntilVisible(t *testing.T) {
	dir := newFakeDirectory()
	dir.memberOutcomes = []Outcome{OutcomeNotFound, OutcomeNotFound, OutcomeOK}
	c := newTestClient(dir, &fakeDrive{})

	var delays []time.Duration
	c.memberRetry.Sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := c.CreateProjectGroup(context.Background(), "andrew")
	require.NoError(t, err)
	assert.Equal(t, 3, dir.memberCalls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestCreateProjectGroup_MemberFailureIsSwallowed(t *testing.T) {
	dir := newFakeDirectory()
	dir.memberOutcomes = []Outcome{OutcomeFailed}
	dir.patchErr = errors.New("settings unavailable")
	c := newTestClient(dir, &fakeDrive{})

	email, err := c.CreateProjectGroup(context.Background(), "andrew")
	require.NoError(t, err)
	assert.Equal(t, "andrew-drive@example.com", email)
	assert.Equal(t, 1, dir.memberCalls)
}

func TestCreateProjectGroup_AlreadyMemberIsSuccess(t *testing.T) {
	dir := newFakeDirectory()
	dir.memberOutcomes = []Outcome{OutcomeAlreadyExists}
	c := newTestClient(dir, &fakeDrive{})

	_, err := c.CreateProjectGroup(context.Background(), "andrew")
	require.NoError(t, err)
	assert.Equal(t, 1, dir.memberCalls)
}

// ==================== Membership / Delete Tests ====================

func TestEnsureAdminIsMember(t *testing.T) {
	dir := newFakeDirectory()
	c := newTestClient(dir, &fakeDrive{})

	added, err := c.EnsureAdminIsMember(context.Background(), "g@example.com")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = c.EnsureAdminIsMember(context.Background(), "g@example.com")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, dir.memberCalls)
}

func TestDeleteProjectGroup(t *testing.T) {
	dir := newFakeDirectory()
	c := newTestClient(dir, &fakeDrive{})

	dir.deleteOutcome = OutcomeOK
	ok, err := c.DeleteProjectGroup(context.Background(), "g@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	dir.deleteOutcome = OutcomeNotFound
	ok, err = c.DeleteProjectGroup(context.Background(), "g@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	dir.deleteOutcome, dir.deleteErr = OutcomeFailed, domain.ErrForbidden
	_, err = c.DeleteProjectGroup(context.Background(), "g@example.com")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// ==================== Shared Files Tests ====================

func TestListFilesSharedWithGroup(t *testing.T) {
	group := "andrew-drive@example.com"
	drv := &fakeDrive{
		pages: [][]domain.FileMetadata{
			{{ID: "a", Name: "a.csv"}, {ID: "b", Name: "b.csv"}},
			{{ID: "c", Name: "c.csv"}, {ID: "d", Name: "d.csv"}, {ID: "e", Name: "e.csv"}},
		},
		perms: map[string][]Permission{
			"a": {{Type: "group", EmailAddress: strings.ToUpper(group)}},
			"b": {{Type: "user", EmailAddress: "someone@example.com"}},
			"d": {{Type: "group", EmailAddress: group, Deleted: true}},
			"e": {{Type: "group", EmailAddress: group}},
		},
		permErrs: map[string]error{"c": domain.ErrForbidden},
	}
	c := newTestClient(newFakeDirectory(), drv)

	files, err := c.ListFilesSharedWithGroup(context.Background(), group)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].ID)
	assert.Equal(t, "e", files[1].ID)
}

func TestListFilesSharedWithGroup_PermissionFailureAborts(t *testing.T) {
	drv := &fakeDrive{
		pages:    [][]domain.FileMetadata{{{ID: "a"}}},
		permErrs: map[string]error{"a": domain.ErrUnavailable},
	}
	c := newTestClient(newFakeDirectory(), drv)

	_, err := c.ListFilesSharedWithGroup(context.Background(), "g@example.com")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

// ==================== Content Tests ====================

func TestFetchContent(t *testing.T) {
	drv := &fakeDrive{content: map[string][]byte{"f": []byte("hello")}}
	c := newTestClient(newFakeDirectory(), drv)

	data, err := c.FetchContent(context.Background(), "f", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
	assert.Equal(t, int64(1024), drv.maxSeen)

	drv.fetchErr = fmt.Errorf("%w: f exceeds 1024 bytes", domain.ErrFileTooLarge)
	data, err = c.FetchContent(context.Background(), "f", domain.MimeTypeGoogleDoc)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	assert.Nil(t, data)

	drv.fetchErr = domain.ErrUnavailable
	_, err = c.FetchContent(context.Background(), "f", "text/plain")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.NotErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestFetchContent_DownloadTimeout(t *testing.T) {
	drv := &fakeDrive{hang: true}
	c := NewClient(newFakeDirectory(), drv, Config{DownloadTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := c.FetchContent(context.Background(), "f", "application/pdf")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestListFilesSharedWithGroup_MetadataTimeout(t *testing.T) {
	drv := &fakeDrive{hang: true}
	c := NewClient(newFakeDirectory(), drv, Config{MetadataTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := c.ListFilesSharedWithGroup(context.Background(), "g@example.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestConfig_DefaultTimeouts(t *testing.T) {
	assert.Equal(t, DefaultMetadataTimeout, Config{}.metadataTimeout())
	assert.Equal(t, DefaultDownloadTimeout, Config{}.downloadTimeout())
	assert.Equal(t, time.Second, Config{MetadataTimeout: time.Second}.metadataTimeout())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "already_exists", OutcomeAlreadyExists.String())
	assert.Equal(t, "not_found", OutcomeNotFound.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}
