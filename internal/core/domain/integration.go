package domain

import (
	"fmt"
	"time"
)

// ProviderGoogleDrive is the provider tag for Drive integrations.
const ProviderGoogleDrive = "google_drive"

// Integration is a project's persisted Drive authorization.
// At most one exists per (ProjectID, Provider).
type Integration struct {
	// ID is the unique identifier (UUID).
	ID string
	// ProjectID links the integration to its project.
	ProjectID string
	// Provider is always ProviderGoogleDrive today.
	Provider string
	// AccountEmail is the Google account that granted access.
	AccountEmail string
	// AccessToken is the sealed access token.
	AccessToken string
	// RefreshToken is the sealed refresh token, empty when none was granted.
	RefreshToken string
	// Expiry is when the access token expires. Zero means unknown.
	Expiry time.Time
	// GrantedBy is the identity that attached the integration.
	GrantedBy string
	// Scope is the granted OAuth scope string.
	Scope string
	// CreatedAt is when the integration was first attached.
	CreatedAt time.Time
	// UpdatedAt is when the integration last changed.
	UpdatedAt time.Time
}

// NeedsRefresh reports whether the access token expires within buffer of
// now. A missing expiry always needs a refresh.
func (i *Integration) NeedsRefresh(now time.Time, buffer time.Duration) bool {
	if i.Expiry.IsZero() {
		return true
	}
	return now.After(i.Expiry.Add(-buffer))
}

// TempToken holds a sealed token payload between consent and attachment.
// At most one exists per (Owner, Provider).
type TempToken struct {
	Owner     string
	Provider  string
	Sealed    string
	UpdatedAt time.Time
}

// IsExpired reports whether the temporary token is older than ttl.
func (t *TempToken) IsExpired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(t.UpdatedAt) > ttl
}

// TokenPayload is the plaintext content of a temporary token.
type TokenPayload struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	AccountEmail string
	Scope        string
}

// Keys used when a TokenPayload is sealed as a map.
const (
	payloadAccessToken  = "access_token"
	payloadRefreshToken = "refresh_token"
	payloadExpiry       = "token_expires_at"
	payloadEmail        = "account_email"
	payloadScope        = "scope"
)

// ToMap flattens the payload for sealing.
func (p TokenPayload) ToMap() map[string]string {
	m := map[string]string{
		payloadAccessToken:  p.AccessToken,
		payloadRefreshToken: p.RefreshToken,
		payloadEmail:        p.AccountEmail,
		payloadScope:        p.Scope,
	}
	if !p.Expiry.IsZero() {
		m[payloadExpiry] = p.Expiry.UTC().Format(time.RFC3339)
	}
	return m
}

// TokenPayloadFromMap rebuilds a payload from an unsealed map.
func TokenPayloadFromMap(m map[string]string) (TokenPayload, error) {
	p := TokenPayload{
		AccessToken:  m[payloadAccessToken],
		RefreshToken: m[payloadRefreshToken],
		AccountEmail: m[payloadEmail],
		Scope:        m[payloadScope],
	}
	if p.AccessToken == "" {
		return TokenPayload{}, fmt.Errorf("%w: payload has no access token", ErrInvalidInput)
	}
	if raw := m[payloadExpiry]; raw != "" {
		expiry, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return TokenPayload{}, fmt.Errorf("%w: bad token expiry %q", ErrInvalidInput, raw)
		}
		p.Expiry = expiry
	}
	return p, nil
}

// FallbackAccountEmail is used when the userinfo lookup fails.
func FallbackAccountEmail(owner string) string {
	return fmt.Sprintf("google_user_%s@drive.local", owner)
}

// SelectedItem is a Drive file or folder chosen for sync.
type SelectedItem struct {
	ID            string
	IntegrationID string
	Type          ItemType
	ExternalID    string
	Name          string
	MIMEType      string
	// Recursive allows descending below the first level of a folder.
	Recursive bool
	CreatedAt time.Time
}
