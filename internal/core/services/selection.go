package services

import (
	"context"
	"fmt"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
	"github.com/aganswers/drivesync/internal/core/ports/driving"
)

// Ensure SelectionService implements the interface.
var _ driving.SelectionService = (*SelectionService)(nil)

// SelectionService manages the Drive items a project syncs.
type SelectionService struct {
	projects     driven.ProjectStore
	integrations driven.IntegrationStore
	selections   driven.SelectionStore
	syncOrch     driving.SyncOrchestrator
}

// NewSelectionService creates a selection service.
func NewSelectionService(
	projects driven.ProjectStore,
	integrations driven.IntegrationStore,
	selections driven.SelectionStore,
	syncOrch driving.SyncOrchestrator,
) *SelectionService {
	return &SelectionService{
		projects:     projects,
		integrations: integrations,
		selections:   selections,
		syncOrch:     syncOrch,
	}
}

// SaveSelections supersedes the project's selection with items and syncs
// them straight away.
func (s *SelectionService) SaveSelections(ctx context.Context, projectID, owner string, items []domain.SelectedItem) (*driving.SyncReport, error) {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if !project.CanAdminister(owner) {
		return nil, fmt.Errorf("%w: %s may not administer project %s", domain.ErrAccessDenied, owner, projectID)
	}

	integ, err := s.integration(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.selections.Replace(ctx, integ.ID, items); err != nil {
		return nil, fmt.Errorf("save selections: %w", err)
	}

	saved, err := s.selections.List(ctx, integ.ID)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	ids := make([]string, 0, len(saved))
	for _, item := range saved {
		ids = append(ids, item.ID)
	}
	return s.syncOrch.SyncItems(ctx, projectID, ids)
}

// ListSelections returns the project's selected items.
func (s *SelectionService) ListSelections(ctx context.Context, projectID string) ([]domain.SelectedItem, error) {
	integ, err := s.integration(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.selections.List(ctx, integ.ID)
}

func (s *SelectionService) integration(ctx context.Context, projectID string) (*domain.Integration, error) {
	integ, err := s.integrations.Get(ctx, projectID, domain.ProviderGoogleDrive)
	if err != nil {
		return nil, fmt.Errorf("get integration: %w", err)
	}
	if integ == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrIntegrationNotFound)
	}
	return integ, nil
}
