package driven

import (
	"context"
	"time"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// IntegrationStore persists Drive integrations.
// Token fields are stored sealed exactly as given.
type IntegrationStore interface {
	// Get retrieves the integration for a project and provider.
	// Returns nil and no error if none exists.
	Get(ctx context.Context, projectID, provider string) (*domain.Integration, error)

	// Save creates or replaces the integration keyed by (project, provider).
	// An existing integration keeps its ID and creation time.
	Save(ctx context.Context, integration *domain.Integration) error

	// UpdateAccessToken replaces only the sealed access token and expiry.
	UpdateAccessToken(ctx context.Context, id, sealedAccess string, expiry time.Time) error

	// ListByProvider returns every integration for a provider.
	ListByProvider(ctx context.Context, provider string) ([]domain.Integration, error)

	// Delete removes the integration for a project and provider.
	Delete(ctx context.Context, projectID, provider string) error
}

// TempTokenStore persists tokens between consent and project attachment.
type TempTokenStore interface {
	// Save creates or replaces the token keyed by (owner, provider).
	Save(ctx context.Context, token *domain.TempToken) error

	// Get retrieves a temporary token.
	// Returns nil and no error if none exists.
	Get(ctx context.Context, owner, provider string) (*domain.TempToken, error)

	// Delete removes a temporary token. Deleting a missing token is not an error.
	Delete(ctx context.Context, owner, provider string) error

	// DeleteOlderThan removes tokens last updated before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// SelectionStore persists the items chosen for sync.
type SelectionStore interface {
	// Replace atomically swaps the integration's selection for items.
	Replace(ctx context.Context, integrationID string, items []domain.SelectedItem) error

	// List returns the integration's selected items.
	List(ctx context.Context, integrationID string) ([]domain.SelectedItem, error)
}
