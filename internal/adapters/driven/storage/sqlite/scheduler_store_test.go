package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

func testTask(sourceID string, kind domain.TaskKind, interval time.Duration) domain.ScheduledTask {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.ScheduledTask{
		SourceID: sourceID,
		Kind:     kind,
		Interval: interval,
		LastRun:  now.Add(-interval),
		NextRun:  now.Add(interval),
	}
}

func TestSchedulerStore_SaveAndGetTask(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	scheduler := store.SchedulerStore()

	task := testTask("src-1", domain.TaskIncremental, 15*time.Minute)
	require.NoError(t, scheduler.SaveTask(ctx, task))

	got, err := scheduler.GetTask(ctx, "src-1", domain.TaskIncremental)
	require.NoError(t, err)
	assert.Equal(t, task.SourceID, got.SourceID)
	assert.Equal(t, task.Kind, got.Kind)
	assert.Equal(t, 15*time.Minute, got.Interval)
	assert.WithinDuration(t, task.LastRun, got.LastRun, time.Second)
	assert.WithinDuration(t, task.NextRun, got.NextRun, time.Second)
}

func TestSchedulerStore_TasksKeyedBySourceAndKind(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	scheduler := store.SchedulerStore()

	incremental := testTask("src-1", domain.TaskIncremental, 15*time.Minute)
	full := testTask("src-1", domain.TaskFull, 24*time.Hour)
	require.NoError(t, scheduler.SaveTask(ctx, incremental))
	require.NoError(t, scheduler.SaveTask(ctx, full))

	got, err := scheduler.GetTask(ctx, "src-1", domain.TaskFull)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, got.Interval, "the two cadences are independent entries")

	// Saving again replaces, not duplicates.
	incremental.NextRun = incremental.NextRun.Add(time.Hour)
	require.NoError(t, scheduler.SaveTask(ctx, incremental))

	tasks, err := scheduler.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestSchedulerStore_GetTaskMissing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.SchedulerStore().GetTask(context.Background(), "nope", domain.TaskIncremental)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSchedulerStore_ListTasksOrdered(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	scheduler := store.SchedulerStore()

	require.NoError(t, scheduler.SaveTask(ctx, testTask("src-b", domain.TaskIncremental, time.Minute)))
	require.NoError(t, scheduler.SaveTask(ctx, testTask("src-a", domain.TaskIncremental, time.Minute)))
	require.NoError(t, scheduler.SaveTask(ctx, testTask("src-a", domain.TaskFull, time.Hour)))

	tasks, err := scheduler.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "src-a", tasks[0].SourceID)
	assert.Equal(t, domain.TaskFull, tasks[0].Kind)
	assert.Equal(t, "src-a", tasks[1].SourceID)
	assert.Equal(t, domain.TaskIncremental, tasks[1].Kind)
	assert.Equal(t, "src-b", tasks[2].SourceID)
}

func TestSchedulerStore_DeleteTasks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	scheduler := store.SchedulerStore()

	require.NoError(t, scheduler.SaveTask(ctx, testTask("src-1", domain.TaskIncremental, time.Minute)))
	require.NoError(t, scheduler.SaveTask(ctx, testTask("src-1", domain.TaskFull, time.Hour)))
	require.NoError(t, scheduler.SaveTask(ctx, testTask("src-2", domain.TaskIncremental, time.Minute)))

	require.NoError(t, scheduler.DeleteTasks(ctx, "src-1"))

	tasks, err := scheduler.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1, "both of the source's cadences are gone")
	assert.Equal(t, "src-2", tasks[0].SourceID)
}

func TestSchedulerStore_Results(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	scheduler := store.SchedulerStore()

	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	for i := 0; i < 3; i++ {
		result := domain.TaskResult{
			SourceID:  "src-1",
			Kind:      domain.TaskIncremental,
			RunID:     "run-" + string(rune('0'+i)),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			EndedAt:   base.Add(time.Duration(i)*time.Minute + 30*time.Second),
		}
		require.NoError(t, scheduler.SaveResult(ctx, result))
	}
	require.NoError(t, scheduler.SaveResult(ctx, domain.TaskResult{
		SourceID:  "src-1",
		Kind:      domain.TaskFull,
		StartedAt: base.Add(time.Hour),
		EndedAt:   base.Add(time.Hour),
		Error:     "sync already running",
	}))

	t.Run("lists newest first", func(t *testing.T) {
		results, err := scheduler.ListResults(ctx, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "sync already running", results[0].Error)
		assert.Equal(t, "run-2", results[1].RunID)
	})

	t.Run("zero limit lists all", func(t *testing.T) {
		results, err := scheduler.ListResults(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, results, 4)
	})

	t.Run("prune keeps the newest", func(t *testing.T) {
		require.NoError(t, scheduler.PruneResults(ctx, 1))

		results, err := scheduler.ListResults(ctx, 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, domain.TaskFull, results[0].Kind)
	})

	t.Run("prune with zero keep is a no-op", func(t *testing.T) {
		require.NoError(t, scheduler.PruneResults(ctx, 0))

		results, err := scheduler.ListResults(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}
