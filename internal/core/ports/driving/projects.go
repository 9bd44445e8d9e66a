package driving

import (
	"context"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// SelectionService manages the items a project syncs.
type SelectionService interface {
	// SaveSelections replaces the project's selection and syncs the
	// newly selected items.
	SaveSelections(ctx context.Context, projectID, owner string, items []domain.SelectedItem) (*SyncReport, error)

	// ListSelections returns the project's selected items.
	ListSelections(ctx context.Context, projectID string) ([]domain.SelectedItem, error)
}

// ProjectService manages projects and their Google Groups.
type ProjectService interface {
	// Create registers a project with its administrators.
	Create(ctx context.Context, name string, admins []string) (*domain.Project, error)

	// Get returns a project by ID.
	Get(ctx context.Context, id string) (*domain.Project, error)

	// List returns all projects.
	List(ctx context.Context) ([]domain.Project, error)

	// ProvisionGroup creates the project's group if it has none and
	// returns the group email.
	ProvisionGroup(ctx context.Context, projectID string) (string, error)

	// DeprovisionGroup deletes the project's group.
	DeprovisionGroup(ctx context.Context, projectID string) error

	// EnsureGroupAdmin makes sure the admin identity is a group owner.
	EnsureGroupAdmin(ctx context.Context, projectID string) (bool, error)

	// GroupFiles lists files shared with the project's group.
	GroupFiles(ctx context.Context, projectID string) ([]domain.FileMetadata, error)
}
