package driving

import (
	"context"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// Scheduler manages background tasks like Drive sync and record cleanup.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Tasks returns the stored task states, soonest due first.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns up to limit runs of a task, most recent first.
	// A non-positive limit returns the whole retained history.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}
