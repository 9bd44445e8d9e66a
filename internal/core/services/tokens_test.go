package services

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aganswers/drivesync/internal/adapters/driven/storage/memory"
	"github.com/aganswers/drivesync/internal/adapters/driven/vault"
	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
)

type tokenFixture struct {
	manager      *TokenManager
	projects     *memory.ProjectStore
	integrations *memory.IntegrationStore
	temp         *memory.TempTokenStore
	vault        *fakeVault
	oauth        *fakeExchanger
	clock        *fixedClock
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()
	f := &tokenFixture{
		projects:     memory.NewProjectStore(),
		integrations: memory.NewIntegrationStore(),
		temp:         memory.NewTempTokenStore(),
		vault:        &fakeVault{},
		clock:        newFixedClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		oauth: &fakeExchanger{
			grant: driven.TokenGrant{
				AccessToken:  "access-1",
				RefreshToken: "refresh-1",
				Expiry:       time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC),
				Scope:        "drive.readonly",
			},
			refreshed: driven.TokenGrant{
				AccessToken: "access-2",
				Expiry:      time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC),
			},
		},
	}
	f.manager = NewTokenManager(f.projects, f.integrations, f.temp, f.vault, f.oauth, time.Hour)
	f.manager.now = f.clock.Now

	require.NoError(t, f.projects.Save(context.Background(), &domain.Project{
		ID:     "andrew",
		Name:   "Andrew",
		Admins: []string{"owner@example.com"},
	}))
	return f
}

// attach runs the consent flow and attaches the grant to project andrew.
func (f *tokenFixture) attach(t *testing.T) *domain.Integration {
	t.Helper()
	ctx := context.Background()
	ok, err := f.manager.CompleteAuthorization(ctx, "code", "owner@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	integ, err := f.manager.AttachToProject(ctx, "andrew", "owner@example.com")
	require.NoError(t, err)
	return integ
}

func stateOf(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestTokenManager_BeginAuthorization(t *testing.T) {
	f := newTokenFixture(t)

	authURL, err := f.manager.BeginAuthorization("owner@example.com")
	require.NoError(t, err)

	state := stateOf(t, authURL)
	assert.NotEqual(t, "owner@example.com", state)
	owner, err := f.manager.OwnerFromState(state)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", owner)
}

func TestTokenManager_BeginAuthorization_RequiresOwner(t *testing.T) {
	f := newTokenFixture(t)
	_, err := f.manager.BeginAuthorization("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTokenManager_OwnerFromState_Expired(t *testing.T) {
	f := newTokenFixture(t)
	authURL, err := f.manager.BeginAuthorization("owner@example.com")
	require.NoError(t, err)

	f.clock.Advance(stateTTL)
	_, err = f.manager.OwnerFromState(stateOf(t, authURL))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestTokenManager_OwnerFromState_RejectsForgedState(t *testing.T) {
	v, err := vault.New(testVaultKey(t))
	require.NoError(t, err)
	f := newTokenFixture(t)
	f.manager.vault = v

	for _, forged := range []string{"", "owner@example.com", "bm90LXNlYWxlZA=="} {
		_, err := f.manager.OwnerFromState(forged)
		assert.ErrorIs(t, err, domain.ErrInvalidState, forged)
	}

	authURL, err := f.manager.BeginAuthorization("owner@example.com")
	require.NoError(t, err)
	owner, err := f.manager.OwnerFromState(stateOf(t, authURL))
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", owner)
}

func testVaultKey(t *testing.T) string {
	t.Helper()
	key, err := vault.GenerateKey()
	require.NoError(t, err)
	return key
}

func TestTokenManager_CompleteAuthorization(t *testing.T) {
	f := newTokenFixture(t)
	ctx := context.Background()

	ok, err := f.manager.CompleteAuthorization(ctx, "code", "owner@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	temp, err := f.temp.Get(ctx, "owner@example.com", domain.ProviderGoogleDrive)
	require.NoError(t, err)
	require.NotNil(t, temp)

	plain, err := f.vault.Unseal(temp.Sealed)
	require.NoError(t, err)
	payload, err := domain.TokenPayloadFromMap(plain)
	require.NoError(t, err)
	assert.Equal(t, "access-1", payload.AccessToken)
	assert.Equal(t, "refresh-1", payload.RefreshToken)
	assert.Equal(t, "farmer@example.com", payload.AccountEmail)
}

func TestTokenManager_CompleteAuthorization_Rejected(t *testing.T) {
	f := newTokenFixture(t)
	f.oauth.exchangeErr = fmt.Errorf("%w: invalid_grant", domain.ErrTokenExchangeRejected)

	ok, err := f.manager.CompleteAuthorization(context.Background(), "bad", "owner@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenManager_CompleteAuthorization_TransportError(t *testing.T) {
	f := newTokenFixture(t)
	f.oauth.exchangeErr = fmt.Errorf("%w: dial tcp", domain.ErrTransport)

	ok, err := f.manager.CompleteAuthorization(context.Background(), "code", "owner@example.com")
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.False(t, ok)
}

func TestTokenManager_CompleteAuthorization_FallbackEmail(t *testing.T) {
	f := newTokenFixture(t)
	f.oauth.emailErr = errBoom

	integ := f.attach(t)
	assert.Equal(t, "google_user_owner@example.com@drive.local", integ.AccountEmail)
}

func TestTokenManager_AttachToProject(t *testing.T) {
	f := newTokenFixture(t)
	ctx := context.Background()

	integ := f.attach(t)
	assert.Equal(t, "andrew", integ.ProjectID)
	assert.Equal(t, "owner@example.com", integ.GrantedBy)
	assert.Equal(t, "drive.readonly", integ.Scope)
	assert.NotEqual(t, "access-1", integ.AccessToken, "tokens are stored sealed")

	temp, err := f.temp.Get(ctx, "owner@example.com", domain.ProviderGoogleDrive)
	require.NoError(t, err)
	assert.Nil(t, temp, "temporary token is consumed")

	token, err := f.manager.GetValidAccessToken(ctx, "andrew")
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
}

func TestTokenManager_AttachToProject_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown project", func(t *testing.T) {
		f := newTokenFixture(t)
		_, err := f.manager.AttachToProject(ctx, "missing", "owner@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("not an admin", func(t *testing.T) {
		f := newTokenFixture(t)
		_, err := f.manager.AttachToProject(ctx, "andrew", "stranger@example.com")
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})

	t.Run("no temporary token", func(t *testing.T) {
		f := newTokenFixture(t)
		_, err := f.manager.AttachToProject(ctx, "andrew", "owner@example.com")
		assert.ErrorIs(t, err, domain.ErrNoTempToken)
	})

	t.Run("expired temporary token", func(t *testing.T) {
		f := newTokenFixture(t)
		ok, err := f.manager.CompleteAuthorization(ctx, "code", "owner@example.com")
		require.NoError(t, err)
		require.True(t, ok)

		f.clock.Advance(2 * time.Hour)
		_, err = f.manager.AttachToProject(ctx, "andrew", "owner@example.com")
		assert.ErrorIs(t, err, domain.ErrNoTempToken)

		temp, err := f.temp.Get(ctx, "owner@example.com", domain.ProviderGoogleDrive)
		require.NoError(t, err)
		assert.Nil(t, temp)
	})

	t.Run("tampered temporary token", func(t *testing.T) {
		f := newTokenFixture(t)
		require.NoError(t, f.temp.Save(ctx, &domain.TempToken{
			Owner:     "owner@example.com",
			Provider:  domain.ProviderGoogleDrive,
			Sealed:    "garbage",
			UpdatedAt: f.clock.Now(),
		}))
		_, err := f.manager.AttachToProject(ctx, "andrew", "owner@example.com")
		assert.ErrorIs(t, err, domain.ErrDecryption)
	})
}

func TestTokenManager_GetValidAccessToken_NoIntegration(t *testing.T) {
	f := newTokenFixture(t)
	_, err := f.manager.GetValidAccessToken(context.Background(), "andrew")
	assert.ErrorIs(t, err, domain.ErrIntegrationNotFound)
}

func TestTokenManager_GetValidAccessToken_RefreshesNearExpiry(t *testing.T) {
	f := newTokenFixture(t)
	ctx := context.Background()
	f.attach(t)

	// Four minutes before expiry is inside the refresh buffer
	f.clock.Advance(56 * time.Minute)
	token, err := f.manager.GetValidAccessToken(ctx, "andrew")
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, 1, f.oauth.refreshCalls)

	integ, err := f.integrations.Get(ctx, "andrew", domain.ProviderGoogleDrive)
	require.NoError(t, err)
	assert.True(t, integ.Expiry.Equal(f.oauth.refreshed.Expiry))

	// Fresh token is served without another refresh
	token, err = f.manager.GetValidAccessToken(ctx, "andrew")
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, 1, f.oauth.refreshCalls)
}

func TestTokenManager_GetValidAccessToken_NoRefreshOutsideBuffer(t *testing.T) {
	f := newTokenFixture(t)
	f.attach(t)

	f.clock.Advance(50 * time.Minute)
	token, err := f.manager.GetValidAccessToken(context.Background(), "andrew")
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Zero(t, f.oauth.refreshCalls)
}

func TestTokenManager_GetValidAccessToken_StaleOnRefreshFailure(t *testing.T) {
	f := newTokenFixture(t)
	f.attach(t)
	f.oauth.refreshErr = fmt.Errorf("%w: invalid_grant", domain.ErrTokenExchangeRejected)

	f.clock.Advance(2 * time.Hour)
	token, err := f.manager.GetValidAccessToken(context.Background(), "andrew")
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
}

func TestTokenManager_GetValidAccessToken_NoRefreshToken(t *testing.T) {
	f := newTokenFixture(t)
	f.oauth.grant.RefreshToken = ""
	f.attach(t)

	f.clock.Advance(2 * time.Hour)
	token, err := f.manager.GetValidAccessToken(context.Background(), "andrew")
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Zero(t, f.oauth.refreshCalls)

	_, err = f.manager.RefreshAccessToken(context.Background(), "andrew")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokenManager_ConcurrentRefreshHappensOnce(t *testing.T) {
	f := newTokenFixture(t)
	f.attach(t)
	f.clock.Advance(2 * time.Hour)
	f.oauth.refreshed.Expiry = f.clock.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := f.manager.GetValidAccessToken(context.Background(), "andrew")
			assert.NoError(t, err)
			assert.Equal(t, "access-2", token)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.oauth.refreshCalls)
}

func TestTokenManager_RefreshAccessToken_Forced(t *testing.T) {
	f := newTokenFixture(t)
	f.attach(t)

	token, err := f.manager.RefreshAccessToken(context.Background(), "andrew")
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, 1, f.oauth.refreshCalls)
}

func TestTokenManager_CleanupTempTokens(t *testing.T) {
	f := newTokenFixture(t)
	ctx := context.Background()

	require.NoError(t, f.temp.Save(ctx, &domain.TempToken{
		Owner: "old", Provider: domain.ProviderGoogleDrive, Sealed: "x", UpdatedAt: f.clock.Now().Add(-3 * time.Hour),
	}))
	require.NoError(t, f.temp.Save(ctx, &domain.TempToken{
		Owner: "new", Provider: domain.ProviderGoogleDrive, Sealed: "x", UpdatedAt: f.clock.Now(),
	}))

	removed, err := f.manager.CleanupTempTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	kept, err := f.temp.Get(ctx, "new", domain.ProviderGoogleDrive)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
