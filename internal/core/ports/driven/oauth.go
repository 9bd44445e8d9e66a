package driven

import (
	"context"
	"time"
)

// TokenGrant is the result of a code exchange or refresh.
type TokenGrant struct {
	AccessToken string
	// RefreshToken is empty when the provider did not issue one.
	RefreshToken string
	Expiry       time.Time
	Scope        string
}

// TokenExchanger talks to the provider's OAuth endpoints.
type TokenExchanger interface {
	// AuthCodeURL builds the consent URL requesting offline access.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for tokens.
	// A non-success response fails with domain.ErrTokenExchangeRejected;
	// transport failures are returned as-is.
	Exchange(ctx context.Context, code string) (*TokenGrant, error)

	// Refresh obtains a new access token from a refresh token.
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)

	// UserEmail resolves the account email for an access token.
	UserEmail(ctx context.Context, accessToken string) (string, error)
}
