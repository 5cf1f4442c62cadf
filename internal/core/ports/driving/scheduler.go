package driving

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// Scheduler runs the background sync sweep: frequent incremental passes
// plus a slower full pass for drift correction.
type Scheduler interface {
	// Start begins the sweep loop. Blocks until the context is
	// cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop halts the sweep loop.
	Stop()

	// Tasks returns the current schedule.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns recent executions, newest first.
	History(ctx context.Context, limit int) ([]domain.TaskResult, error)
}
