package driven

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// SchedulerStore persists sweep schedules and a bounded execution history.
type SchedulerStore interface {
	// SaveTask stores or updates a task keyed by (source id, kind).
	SaveTask(ctx context.Context, task domain.ScheduledTask) error

	// GetTask retrieves one task. Returns domain.ErrNotFound when absent.
	GetTask(ctx context.Context, sourceID string, kind domain.TaskKind) (*domain.ScheduledTask, error)

	// ListTasks returns all tasks.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// DeleteTasks removes a source's tasks.
	DeleteTasks(ctx context.Context, sourceID string) error

	// SaveResult appends one execution result.
	SaveResult(ctx context.Context, result domain.TaskResult) error

	// ListResults returns the newest results, at most limit.
	ListResults(ctx context.Context, limit int) ([]domain.TaskResult, error)

	// PruneResults drops all but the newest keep results.
	PruneResults(ctx context.Context, keep int) error
}
