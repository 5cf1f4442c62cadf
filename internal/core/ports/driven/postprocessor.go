package driven

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// PostProcessor transforms a document's chunks. The first processor in
// a pipeline receives nil chunks and is expected to create them.
type PostProcessor interface {
	// Name returns the processor's registry name.
	Name() string

	// Process transforms the chunks for the document.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline runs a document through an ordered processor
// chain. Output is deterministic for identical input, which keeps chunk
// ids stable across re-syncs.
type PostProcessorPipeline interface {
	// Process produces the document's chunks.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
