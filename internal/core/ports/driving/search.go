package driving

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// SearchService serves hybrid queries over the indexed corpus.
type SearchService interface {
	// Search runs a hybrid vector+lexical query and returns fused,
	// document-level results ranked best-first.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)
}
