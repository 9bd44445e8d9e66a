package driving

import (
	"context"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// TokenManager owns the OAuth lifecycle of Drive integrations.
type TokenManager interface {
	// BeginAuthorization returns the provider consent URL. The URL carries
	// a sealed, expiring state bound to owner.
	BeginAuthorization(owner string) (string, error)

	// OwnerFromState verifies a state returned by the provider and yields
	// the owner it was issued for. Fails with domain.ErrInvalidState.
	OwnerFromState(state string) (string, error)

	// CompleteAuthorization exchanges a code and stores the result as the
	// owner's temporary token. Returns false when the provider rejects
	// the code.
	CompleteAuthorization(ctx context.Context, code, owner string) (bool, error)

	// AttachToProject promotes the owner's temporary token to the
	// project's integration.
	AttachToProject(ctx context.Context, projectID, owner string) (*domain.Integration, error)

	// GetValidAccessToken returns a usable access token, refreshing it
	// first when it is near expiry.
	GetValidAccessToken(ctx context.Context, projectID string) (string, error)

	// RefreshAccessToken forces a refresh regardless of expiry.
	RefreshAccessToken(ctx context.Context, projectID string) (string, error)

	// CleanupTempTokens removes temporary tokens past their TTL.
	CleanupTempTokens(ctx context.Context) (int, error)
}

// DriveLister lists Drive content for a project's integration.
type DriveLister interface {
	// ListFiles returns the direct children of a folder.
	// An empty folderID lists the root of My Drive.
	ListFiles(ctx context.Context, projectID, folderID string) ([]domain.FileMetadata, error)

	// GetFile returns one file's metadata.
	GetFile(ctx context.Context, projectID, fileID string) (*domain.FileMetadata, error)
}
