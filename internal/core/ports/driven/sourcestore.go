package driven

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// SourceStore persists source configuration.
type SourceStore interface {
	// Save stores or updates a source by id.
	Save(ctx context.Context, source domain.Source) error

	// Get retrieves a source. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// Delete removes a source.
	Delete(ctx context.Context, id string) error

	// List returns all sources.
	List(ctx context.Context) ([]domain.Source, error)
}
