package domain

import "time"

// TaskKind distinguishes the two sweep cadences.
type TaskKind string

// Task kinds.
const (
	// TaskIncremental is the frequent cursor-driven sweep.
	TaskIncremental TaskKind = "incremental"

	// TaskFull is the slow drift-correction sweep that reconciles
	// deletions.
	TaskFull TaskKind = "full"
)

// ScheduledTask is one source's recurring sync schedule as tracked by
// the sweeper.
type ScheduledTask struct {
	// SourceID identifies the source.
	SourceID string

	// Kind is the sweep cadence this entry tracks.
	Kind TaskKind

	// Interval is the cadence.
	Interval time.Duration

	// LastRun is when the task last started.
	LastRun time.Time

	// NextRun is when the task is next due.
	NextRun time.Time
}

// Due reports whether the task should run at the given instant.
func (t ScheduledTask) Due(now time.Time) bool {
	return t.NextRun.IsZero() || !now.Before(t.NextRun)
}

// TaskResult is the outcome of one scheduled execution, kept as a
// bounded history for the status surface.
type TaskResult struct {
	// SourceID and Kind identify the task.
	SourceID string
	Kind     TaskKind

	// RunID links to the sync run, when one was started.
	RunID string

	// StartedAt and EndedAt bound the execution.
	StartedAt time.Time
	EndedAt   time.Time

	// Error is the failure message, empty on success. A skip due to a
	// sync already holding the lock is recorded here too.
	Error string
}
