package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
	"github.com/aganswers/drivesync/internal/core/ports/driving"
	"github.com/aganswers/drivesync/internal/logger"
)

// Ensure TokenManager implements the interface.
var _ driving.TokenManager = (*TokenManager)(nil)

// refreshBuffer is how close to expiry an access token gets refreshed.
const refreshBuffer = 5 * time.Minute

// sealedTokenKey is the payload key of a single sealed token.
const sealedTokenKey = "token"

// stateTTL is how long a consent URL stays redeemable.
const stateTTL = 15 * time.Minute

const (
	stateOwnerKey  = "owner"
	stateExpiryKey = "exp"
)

// TokenManager obtains, stores and refreshes Drive OAuth tokens.
type TokenManager struct {
	projects     driven.ProjectStore
	integrations driven.IntegrationStore
	tempTokens   driven.TempTokenStore
	vault        driven.Vault
	oauth        driven.TokenExchanger
	tempTTL      time.Duration
	now          func() time.Time

	// refreshMu serialises refreshes so concurrent callers reuse one grant.
	refreshMu sync.Mutex
}

// NewTokenManager creates a token manager. Temporary tokens older than
// tempTTL are rejected and removed by cleanup; zero disables expiry.
func NewTokenManager(
	projects driven.ProjectStore,
	integrations driven.IntegrationStore,
	tempTokens driven.TempTokenStore,
	vault driven.Vault,
	oauth driven.TokenExchanger,
	tempTTL time.Duration,
) *TokenManager {
	return &TokenManager{
		projects:     projects,
		integrations: integrations,
		tempTokens:   tempTokens,
		vault:        vault,
		oauth:        oauth,
		tempTTL:      tempTTL,
		now:          time.Now,
	}
}

// BeginAuthorization returns the consent URL for the read-only Drive scopes.
// The state is sealed by the vault so the callback can trust the owner.
func (m *TokenManager) BeginAuthorization(owner string) (string, error) {
	if owner == "" {
		return "", fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	state, err := m.vault.Seal(map[string]string{
		stateOwnerKey:  owner,
		stateExpiryKey: m.now().Add(stateTTL).UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("seal state: %w", err)
	}
	return m.oauth.AuthCodeURL(state), nil
}

// OwnerFromState opens a state issued by BeginAuthorization.
func (m *TokenManager) OwnerFromState(state string) (string, error) {
	if state == "" {
		return "", fmt.Errorf("%w: empty", domain.ErrInvalidState)
	}
	payload, err := m.vault.Unseal(state)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidState, err)
	}
	owner := payload[stateOwnerKey]
	exp, err := time.Parse(time.RFC3339, payload[stateExpiryKey])
	if owner == "" || err != nil {
		return "", fmt.Errorf("%w: malformed payload", domain.ErrInvalidState)
	}
	if !m.now().Before(exp) {
		return "", fmt.Errorf("%w: expired at %s", domain.ErrInvalidState, exp.Format(time.RFC3339))
	}
	return owner, nil
}

// CompleteAuthorization exchanges the code and stores the grant as the
// owner's temporary token. A rejected code returns false without error.
func (m *TokenManager) CompleteAuthorization(ctx context.Context, code, owner string) (bool, error) {
	if code == "" || owner == "" {
		return false, fmt.Errorf("%w: code and owner are required", domain.ErrInvalidInput)
	}

	grant, err := m.oauth.Exchange(ctx, code)
	if errors.Is(err, domain.ErrTokenExchangeRejected) {
		logger.Warn("token exchange rejected for %s: %v", owner, err)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exchange authorization code: %w", err)
	}

	email, err := m.oauth.UserEmail(ctx, grant.AccessToken)
	if err != nil || email == "" {
		logger.Warn("could not resolve account email for %s: %v", owner, err)
		email = domain.FallbackAccountEmail(owner)
	}

	payload := domain.TokenPayload{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		Expiry:       grant.Expiry,
		AccountEmail: email,
		Scope:        grant.Scope,
	}
	sealed, err := m.vault.Seal(payload.ToMap())
	if err != nil {
		return false, fmt.Errorf("seal token: %w", err)
	}

	if err := m.tempTokens.Save(ctx, &domain.TempToken{
		Owner:     owner,
		Provider:  domain.ProviderGoogleDrive,
		Sealed:    sealed,
		UpdatedAt: m.now(),
	}); err != nil {
		return false, fmt.Errorf("save temporary token: %w", err)
	}

	logger.Info("stored pending Drive authorization for %s (%s)", owner, email)
	return true, nil
}

// AttachToProject moves the owner's temporary token into the project's
// integration, replacing any previous one.
func (m *TokenManager) AttachToProject(ctx context.Context, projectID, owner string) (*domain.Integration, error) {
	project, err := m.projects.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if !project.CanAdminister(owner) {
		return nil, fmt.Errorf("%w: %s may not administer project %s", domain.ErrAccessDenied, owner, projectID)
	}

	temp, err := m.tempTokens.Get(ctx, owner, domain.ProviderGoogleDrive)
	if err != nil {
		return nil, fmt.Errorf("get temporary token: %w", err)
	}
	if temp == nil {
		return nil, domain.ErrNoTempToken
	}
	if temp.IsExpired(m.now(), m.tempTTL) {
		if err := m.tempTokens.Delete(ctx, owner, domain.ProviderGoogleDrive); err != nil {
			logger.Warn("delete expired temporary token for %s: %v", owner, err)
		}
		return nil, fmt.Errorf("%w: authorization expired", domain.ErrNoTempToken)
	}

	plain, err := m.vault.Unseal(temp.Sealed)
	if err != nil {
		return nil, fmt.Errorf("open temporary token: %w", err)
	}
	payload, err := domain.TokenPayloadFromMap(plain)
	if err != nil {
		return nil, err
	}

	access, err := m.sealToken(payload.AccessToken)
	if err != nil {
		return nil, err
	}
	var refresh string
	if payload.RefreshToken != "" {
		if refresh, err = m.sealToken(payload.RefreshToken); err != nil {
			return nil, err
		}
	}

	integ := &domain.Integration{
		ProjectID:    projectID,
		Provider:     domain.ProviderGoogleDrive,
		AccountEmail: payload.AccountEmail,
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       payload.Expiry,
		GrantedBy:    owner,
		Scope:        payload.Scope,
	}
	if err := m.integrations.Save(ctx, integ); err != nil {
		return nil, fmt.Errorf("save integration: %w", err)
	}
	if err := m.tempTokens.Delete(ctx, owner, domain.ProviderGoogleDrive); err != nil {
		return nil, fmt.Errorf("delete temporary token: %w", err)
	}

	logger.Info("attached Drive account %s to project %s", integ.AccountEmail, projectID)
	return integ, nil
}

// GetValidAccessToken returns the project's access token, refreshing it
// when it expires within five minutes. If the refresh fails the stored
// token is returned; the provider will reject it if it really is stale.
func (m *TokenManager) GetValidAccessToken(ctx context.Context, projectID string) (string, error) {
	integ, err := m.integration(ctx, projectID)
	if err != nil {
		return "", err
	}
	access, err := m.openToken(integ.AccessToken)
	if err != nil {
		return "", fmt.Errorf("open access token: %w", err)
	}

	if integ.RefreshToken == "" || !integ.NeedsRefresh(m.now(), refreshBuffer) {
		return access, nil
	}

	fresh, err := m.refresh(ctx, projectID, false)
	if err != nil {
		logger.Warn("refresh for project %s failed, using stored token: %v", projectID, err)
		return access, nil
	}
	return fresh, nil
}

// RefreshAccessToken refreshes the project's access token unconditionally.
func (m *TokenManager) RefreshAccessToken(ctx context.Context, projectID string) (string, error) {
	return m.refresh(ctx, projectID, true)
}

// refresh exchanges the refresh token and persists the new access token.
// Unless forced, a token refreshed meanwhile by another caller is reused.
func (m *TokenManager) refresh(ctx context.Context, projectID string, force bool) (string, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	integ, err := m.integration(ctx, projectID)
	if err != nil {
		return "", err
	}
	if !force && !integ.NeedsRefresh(m.now(), refreshBuffer) {
		return m.openToken(integ.AccessToken)
	}
	if integ.RefreshToken == "" {
		return "", fmt.Errorf("project %s: %w: no refresh token", projectID, domain.ErrUnauthorized)
	}

	refreshToken, err := m.openToken(integ.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("open refresh token: %w", err)
	}
	grant, err := m.oauth.Refresh(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	sealed, err := m.sealToken(grant.AccessToken)
	if err != nil {
		return "", err
	}
	if err := m.integrations.UpdateAccessToken(ctx, integ.ID, sealed, grant.Expiry); err != nil {
		return "", fmt.Errorf("store refreshed token: %w", err)
	}

	logger.Debug("refreshed access token for project %s (expires %s)", projectID, grant.Expiry.Format(time.RFC3339))
	return grant.AccessToken, nil
}

// CleanupTempTokens removes temporary tokens older than the TTL.
func (m *TokenManager) CleanupTempTokens(ctx context.Context) (int, error) {
	if m.tempTTL <= 0 {
		return 0, nil
	}
	removed, err := m.tempTokens.DeleteOlderThan(ctx, m.now().Add(-m.tempTTL))
	if err != nil {
		return 0, fmt.Errorf("delete expired temporary tokens: %w", err)
	}
	if removed > 0 {
		logger.Info("removed %d expired temporary tokens", removed)
	}
	return removed, nil
}

func (m *TokenManager) integration(ctx context.Context, projectID string) (*domain.Integration, error) {
	integ, err := m.integrations.Get(ctx, projectID, domain.ProviderGoogleDrive)
	if err != nil {
		return nil, fmt.Errorf("get integration: %w", err)
	}
	if integ == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrIntegrationNotFound)
	}
	return integ, nil
}

func (m *TokenManager) sealToken(token string) (string, error) {
	sealed, err := m.vault.Seal(map[string]string{sealedTokenKey: token})
	if err != nil {
		return "", fmt.Errorf("seal token: %w", err)
	}
	return sealed, nil
}

func (m *TokenManager) openToken(sealed string) (string, error) {
	plain, err := m.vault.Unseal(sealed)
	if err != nil {
		return "", err
	}
	token, ok := plain[sealedTokenKey]
	if !ok {
		return "", fmt.Errorf("%w: sealed value holds no token", domain.ErrDecryption)
	}
	return token, nil
}
