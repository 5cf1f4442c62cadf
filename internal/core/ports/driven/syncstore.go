package driven

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// SyncStateStore persists per-source incremental cursors.
type SyncStateStore interface {
	// Save stores or updates a source's sync state.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves a source's sync state. Returns domain.ErrNotFound
	// for a source that has never completed a sync.
	Get(ctx context.Context, sourceID string) (*domain.SyncState, error)

	// Delete removes a source's sync state.
	Delete(ctx context.Context, sourceID string) error
}

// SyncRunStore persists sync run history.
type SyncRunStore interface {
	// Save stores or updates a run by id.
	Save(ctx context.Context, run *domain.SyncRun) error

	// Get retrieves one run. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*domain.SyncRun, error)

	// Latest returns a source's most recent run by start time.
	// Returns domain.ErrNotFound when the source has never run.
	Latest(ctx context.Context, sourceID string) (*domain.SyncRun, error)

	// ListBySource returns a source's runs, newest first, at most limit.
	ListBySource(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error)

	// Prune drops all but the newest keep runs per source.
	Prune(ctx context.Context, keep int) error
}
