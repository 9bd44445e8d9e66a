package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
)

// --- Shared fakes for service tests ---

// fakeVault seals payloads as base64 JSON with a counter for freshness.
type fakeVault struct {
	mu      sync.Mutex
	counter int
	sealErr error
}

func (v *fakeVault) Seal(payload map[string]string) (string, error) {
	if v.sealErr != nil {
		return "", v.sealErr
	}
	v.mu.Lock()
	v.counter++
	n := v.counter
	v.mu.Unlock()
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%s", n, base64.StdEncoding.EncodeToString(data)), nil
}

func (v *fakeVault) Unseal(sealed string) (map[string]string, error) {
	_, encoded, ok := strings.Cut(sealed, ":")
	if !ok {
		return nil, domain.ErrDecryption
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, domain.ErrDecryption
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, domain.ErrDecryption
	}
	return m, nil
}

// fakeExchanger implements driven.TokenExchanger.
type fakeExchanger struct {
	mu           sync.Mutex
	exchangeErr  error
	emailErr     error
	refreshErr   error
	refreshCalls int
	grant        driven.TokenGrant
	refreshed    driven.TokenGrant
}

func (f *fakeExchanger) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeExchanger) Exchange(_ context.Context, code string) (*driven.TokenGrant, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	g := f.grant
	return &g, nil
}

func (f *fakeExchanger) Refresh(_ context.Context, refreshToken string) (*driven.TokenGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	g := f.refreshed
	return &g, nil
}

func (f *fakeExchanger) UserEmail(_ context.Context, _ string) (string, error) {
	if f.emailErr != nil {
		return "", f.emailErr
	}
	return "farmer@example.com", nil
}

// fakeDriveFiles implements driven.DriveFiles with a static tree.
type fakeDriveFiles struct {
	mu       sync.Mutex
	children map[string][]domain.FileMetadata
	files    map[string]domain.FileMetadata
	// validToken, when set, is the only token accepted.
	validToken string
	listErr    map[string]error
	calls      []string
}

func (f *fakeDriveFiles) ListChildren(_ context.Context, accessToken, folderID string) ([]domain.FileMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list:"+folderID+":"+accessToken)
	if f.validToken != "" && accessToken != f.validToken {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err := f.listErr[folderID]; err != nil {
		return nil, err
	}
	return f.children[folderID], nil
}

func (f *fakeDriveFiles) GetMetadata(_ context.Context, accessToken, fileID string) (*domain.FileMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "get:"+fileID+":"+accessToken)
	if f.validToken != "" && accessToken != f.validToken {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	file, ok := f.files[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &file, nil
}

// staticTokens implements driving.TokenManager returning a fixed token.
type staticTokens struct {
	token        string
	refreshed    string
	refreshErr   error
	refreshCalls int
}

func (s *staticTokens) BeginAuthorization(string) (string, error) { return "", nil }

func (s *staticTokens) OwnerFromState(string) (string, error) { return "", domain.ErrInvalidState }

func (s *staticTokens) CompleteAuthorization(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *staticTokens) AttachToProject(context.Context, string, string) (*domain.Integration, error) {
	return nil, nil
}

func (s *staticTokens) GetValidAccessToken(_ context.Context, projectID string) (string, error) {
	if s.token == "" {
		return "", fmt.Errorf("project %s: %w", projectID, domain.ErrIntegrationNotFound)
	}
	return s.token, nil
}

func (s *staticTokens) RefreshAccessToken(context.Context, string) (string, error) {
	s.refreshCalls++
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	return s.refreshed, nil
}

func (s *staticTokens) CleanupTempTokens(context.Context) (int, error) { return 0, nil }

// fakeContent implements driven.ContentFetcher.
type fakeContent struct {
	mu      sync.Mutex
	content map[string][]byte
	fetched []string
}

func (f *fakeContent) FetchContent(_ context.Context, fileID, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, fileID)
	data, ok := f.content[fileID]
	if !ok {
		return nil, domain.ErrUnavailable
	}
	return data, nil
}

// fakeBlobs implements driven.BlobStore in memory.
type fakeBlobs struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	putErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{blobs: make(map[string][]byte)}
}

func (f *fakeBlobs) Put(_ context.Context, key string, content []byte, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = content
	return nil
}

func (f *fakeBlobs) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

// fakePipeline implements driven.IngestionPipeline.
type fakePipeline struct {
	mu        sync.Mutex
	jobs      []driven.IngestionJob
	submitErr error
}

func (f *fakePipeline) Submit(_ context.Context, job driven.IngestionJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.jobs = append(f.jobs, job)
	return nil
}

// fakeGroups implements driven.GroupDirectory.
type fakeGroups struct {
	created    []string
	deleted    []string
	shared     map[string][]domain.FileMetadata
	sharedErr  error
	adminAdded bool
}

func (f *fakeGroups) CreateProjectGroup(_ context.Context, projectName string) (string, error) {
	email := strings.ToLower(projectName) + "-drive@example.com"
	f.created = append(f.created, email)
	return email, nil
}

func (f *fakeGroups) DeleteProjectGroup(_ context.Context, groupEmail string) (bool, error) {
	f.deleted = append(f.deleted, groupEmail)
	return true, nil
}

func (f *fakeGroups) EnsureAdminIsMember(_ context.Context, _ string) (bool, error) {
	added := !f.adminAdded
	f.adminAdded = true
	return added, nil
}

func (f *fakeGroups) ListFilesSharedWithGroup(_ context.Context, groupEmail string) ([]domain.FileMetadata, error) {
	if f.sharedErr != nil {
		return nil, f.sharedErr
	}
	return f.shared[groupEmail], nil
}

// fixedClock returns a controllable now function.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{t: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var errBoom = errors.New("boom")

// Ensure fakes implement interfaces
var (
	_ driven.Vault             = (*fakeVault)(nil)
	_ driven.TokenExchanger    = (*fakeExchanger)(nil)
	_ driven.DriveFiles        = (*fakeDriveFiles)(nil)
	_ driven.ContentFetcher    = (*fakeContent)(nil)
	_ driven.BlobStore         = (*fakeBlobs)(nil)
	_ driven.IngestionPipeline = (*fakePipeline)(nil)
	_ driven.GroupDirectory    = (*fakeGroups)(nil)
)
