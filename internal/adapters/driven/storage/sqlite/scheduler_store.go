package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// SaveTask stores or updates a task, keyed by source id and kind.
func (s *schedulerStore) SaveTask(ctx context.Context, task domain.ScheduledTask) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduler_tasks (source_id, kind, interval_seconds, last_run, next_run)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, kind) DO UPDATE SET
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run
	`, task.SourceID, task.Kind, int64(task.Interval/time.Second), task.LastRun, task.NextRun)

	if err != nil {
		return fmt.Errorf("saving scheduled task: %w", err)
	}
	return nil
}

// GetTask retrieves one task.
func (s *schedulerStore) GetTask(ctx context.Context, sourceID string, kind domain.TaskKind) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, kind, interval_seconds, last_run, next_run
		FROM scheduler_tasks WHERE source_id = ? AND kind = ?
	`, sourceID, kind)

	var task domain.ScheduledTask
	var intervalSeconds int64
	var lastRun, nextRun sql.NullTime
	if err := row.Scan(&task.SourceID, &task.Kind, &intervalSeconds, &lastRun, &nextRun); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}

	task.Interval = time.Duration(intervalSeconds) * time.Second
	if lastRun.Valid {
		task.LastRun = lastRun.Time
	}
	if nextRun.Valid {
		task.NextRun = nextRun.Time
	}

	return &task, nil
}

// ListTasks returns all tasks ordered by source id, then kind.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, kind, interval_seconds, last_run, next_run
		FROM scheduler_tasks
		ORDER BY source_id, kind
	`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask //nolint:prealloc // size unknown from query
	for rows.Next() {
		var task domain.ScheduledTask
		var intervalSeconds int64
		var lastRun, nextRun sql.NullTime
		if err := rows.Scan(&task.SourceID, &task.Kind, &intervalSeconds, &lastRun, &nextRun); err != nil {
			return nil, fmt.Errorf("scanning scheduled task: %w", err)
		}

		task.Interval = time.Duration(intervalSeconds) * time.Second
		if lastRun.Valid {
			task.LastRun = lastRun.Time
		}
		if nextRun.Valid {
			task.NextRun = nextRun.Time
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled tasks: %w", err)
	}

	return tasks, nil
}

// DeleteTasks removes a source's tasks.
func (s *schedulerStore) DeleteTasks(ctx context.Context, sourceID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM scheduler_tasks WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting scheduled tasks: %w", err)
	}
	return nil
}

// SaveResult appends one execution result.
func (s *schedulerStore) SaveResult(ctx context.Context, result domain.TaskResult) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduler_results (source_id, kind, run_id, started_at, ended_at, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.SourceID, result.Kind, result.RunID, result.StartedAt, result.EndedAt, result.Error)

	if err != nil {
		return fmt.Errorf("saving task result: %w", err)
	}
	return nil
}

// ListResults returns the newest results, at most limit.
func (s *schedulerStore) ListResults(ctx context.Context, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = -1 // no LIMIT
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, kind, run_id, started_at, ended_at, error
		FROM scheduler_results
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying task results: %w", err)
	}
	defer rows.Close()

	var results []domain.TaskResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var result domain.TaskResult
		var startedAt, endedAt sql.NullTime
		if err := rows.Scan(&result.SourceID, &result.Kind, &result.RunID,
			&startedAt, &endedAt, &result.Error); err != nil {
			return nil, fmt.Errorf("scanning task result: %w", err)
		}

		if startedAt.Valid {
			result.StartedAt = startedAt.Time
		}
		if endedAt.Valid {
			result.EndedAt = endedAt.Time
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task results: %w", err)
	}

	return results, nil
}

// PruneResults drops all but the newest keep results.
func (s *schedulerStore) PruneResults(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}

	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM scheduler_results WHERE id NOT IN (
			SELECT id FROM scheduler_results ORDER BY id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning task results: %w", err)
	}
	return nil
}
