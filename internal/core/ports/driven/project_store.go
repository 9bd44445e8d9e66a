package driven

import (
	"context"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// ProjectStore persists projects.
type ProjectStore interface {
	// Save creates or updates a project.
	Save(ctx context.Context, project *domain.Project) error

	// Get retrieves a project by ID.
	// Returns domain.ErrNotFound if the project does not exist.
	Get(ctx context.Context, id string) (*domain.Project, error)

	// List returns all projects.
	List(ctx context.Context) ([]domain.Project, error)

	// SetGroupEmail records the project's provisioned group.
	SetGroupEmail(ctx context.Context, id, groupEmail string) error
}
