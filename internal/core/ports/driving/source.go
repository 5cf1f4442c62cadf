package driving

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// SourceService manages source configuration.
type SourceService interface {
	// Add validates and registers a new source. The connector is
	// created and probed before the source is persisted.
	Add(ctx context.Context, source domain.Source) (*domain.Source, error)

	// Get retrieves one source.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// List returns all sources.
	List(ctx context.Context) ([]domain.Source, error)

	// Remove deletes a source together with its documents, index
	// entries and sync state.
	Remove(ctx context.Context, id string) error

	// SetEnabled toggles scheduled syncing for a source.
	SetEnabled(ctx context.Context, id string, enabled bool) error
}
