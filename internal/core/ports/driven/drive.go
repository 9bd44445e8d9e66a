package driven

import (
	"context"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// DriveFiles reads Drive metadata on behalf of a user access token.
// Errors are classified with domain.ErrUnauthorized, domain.ErrForbidden,
// domain.ErrNotFound, domain.ErrRateLimited or domain.ErrUnavailable.
type DriveFiles interface {
	// ListChildren returns the non-trashed direct children of a folder,
	// following every result page.
	ListChildren(ctx context.Context, accessToken, folderID string) ([]domain.FileMetadata, error)

	// GetMetadata returns one file's metadata.
	GetMetadata(ctx context.Context, accessToken, fileID string) (*domain.FileMetadata, error)
}

// ContentFetcher downloads file content with service-account credentials.
type ContentFetcher interface {
	// FetchContent returns the file's bytes, exporting Workspace files.
	// Content over the size ceiling fails with domain.ErrFileTooLarge;
	// any other error means the content is unavailable for now.
	FetchContent(ctx context.Context, fileID, mimeType string) ([]byte, error)
}

// GroupDirectory provisions and inspects per-project Google Groups.
type GroupDirectory interface {
	// CreateProjectGroup creates a group for the project name and
	// returns its email.
	CreateProjectGroup(ctx context.Context, projectName string) (string, error)

	// DeleteProjectGroup removes a group. Returns true if it was deleted.
	DeleteProjectGroup(ctx context.Context, groupEmail string) (bool, error)

	// EnsureAdminIsMember adds the admin identity as owner when missing.
	EnsureAdminIsMember(ctx context.Context, groupEmail string) (bool, error)

	// ListFilesSharedWithGroup returns files whose permissions name the group.
	ListFilesSharedWithGroup(ctx context.Context, groupEmail string) ([]domain.FileMetadata, error)
}
