package driving

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// SyncOrchestrator coordinates ingestion runs over sources.
type SyncOrchestrator interface {
	// Run executes one sync for a source. Returns
	// domain.ErrSyncInProgress when the source's lock is held.
	Run(ctx context.Context, sourceID string, mode domain.SyncMode) (*domain.SyncRun, error)

	// RunAll syncs every enabled source concurrently, one run each.
	// Per-source failures are reported in the runs, not as an error.
	RunAll(ctx context.Context, mode domain.SyncMode) ([]*domain.SyncRun, error)

	// Status reports one source's sync health.
	Status(ctx context.Context, sourceID string) (*domain.SyncStatus, error)

	// StatusAll reports sync health for every source.
	StatusAll(ctx context.Context) ([]domain.SyncStatus, error)

	// Cancel requests cooperative cancellation of a running sync.
	// Returns false when no sync holds the source's lock.
	Cancel(sourceID string) bool
}
