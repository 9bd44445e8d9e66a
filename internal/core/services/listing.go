package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
	"github.com/aganswers/drivesync/internal/core/ports/driving"
	"github.com/aganswers/drivesync/internal/logger"
)

// Ensure DriveListingService implements the interface.
var _ driving.DriveLister = (*DriveListingService)(nil)

// DriveListingService lists Drive content with a project's OAuth grant.
// Nothing is cached; every call reflects the current remote state.
type DriveListingService struct {
	tokens driving.TokenManager
	files  driven.DriveFiles
}

// NewDriveListingService creates a listing service.
func NewDriveListingService(tokens driving.TokenManager, files driven.DriveFiles) *DriveListingService {
	return &DriveListingService{tokens: tokens, files: files}
}

// ListFiles returns the direct children of folderID.
func (s *DriveListingService) ListFiles(ctx context.Context, projectID, folderID string) ([]domain.FileMetadata, error) {
	return withAccessToken(ctx, s.tokens, projectID, func(token string) ([]domain.FileMetadata, error) {
		return s.files.ListChildren(ctx, token, folderID)
	})
}

// GetFile returns one file's current metadata.
func (s *DriveListingService) GetFile(ctx context.Context, projectID, fileID string) (*domain.FileMetadata, error) {
	return withAccessToken(ctx, s.tokens, projectID, func(token string) (*domain.FileMetadata, error) {
		return s.files.GetMetadata(ctx, token, fileID)
	})
}

// withAccessToken runs fn with the project's access token. A rejected
// token is refreshed once and fn retried with the new one.
func withAccessToken[T any](ctx context.Context, tokens driving.TokenManager, projectID string, fn func(string) (T, error)) (T, error) {
	var zero T

	token, err := tokens.GetValidAccessToken(ctx, projectID)
	if err != nil {
		return zero, err
	}

	result, err := fn(token)
	if !errors.Is(err, domain.ErrUnauthorized) {
		return result, err
	}

	logger.Debug("access token rejected for project %s, refreshing", projectID)
	token, rerr := tokens.RefreshAccessToken(ctx, projectID)
	if rerr != nil {
		return zero, fmt.Errorf("%w (refresh failed: %v)", err, rerr)
	}
	return fn(token)
}
