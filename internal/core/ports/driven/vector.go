package driven

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// SearchFilter restricts retrieval candidates before scoring. Filters
// are applied inside the index query, never to the returned top-K, so
// a narrow filter still yields a full result page.
type SearchFilter struct {
	// SourceIDs admits only the given sources. Empty admits all.
	SourceIDs []string

	// Languages admits only the given language codes. Empty admits all.
	Languages []string

	// Categories admits only the given content categories. Empty admits all.
	Categories []string
}

// Empty reports whether the filter admits everything.
func (f SearchFilter) Empty() bool {
	return len(f.SourceIDs) == 0 && len(f.Languages) == 0 && len(f.Categories) == 0
}

// VectorHit is a scored match from the vector index.
type VectorHit struct {
	// ChunkID identifies the matched chunk.
	ChunkID string

	// Score is the cosine similarity, higher is better.
	Score float64
}

// VectorIndex stores chunk embeddings and serves similarity queries.
type VectorIndex interface {
	// Upsert writes entries, idempotent by chunk id.
	Upsert(ctx context.Context, entries []domain.IndexEntry) error

	// Delete removes entries by chunk id. Missing ids are not an error.
	Delete(ctx context.Context, chunkIDs []string) error

	// Query returns the top-k most similar chunks admitted by the filter.
	Query(ctx context.Context, vector []float32, filter SearchFilter, k int) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// LexicalHit is a scored match from the keyword index.
type LexicalHit struct {
	// ChunkID identifies the matched chunk.
	ChunkID string

	// Score is the BM25-style relevance, higher is better.
	Score float64
}

// LexicalIndex serves keyword search over chunk text.
type LexicalIndex interface {
	// Index writes the chunks of one document, replacing earlier
	// entries with the same chunk ids.
	Index(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// Delete removes entries by chunk id. Missing ids are not an error.
	Delete(ctx context.Context, chunkIDs []string) error

	// Query returns the top-k keyword matches admitted by the filter.
	Query(ctx context.Context, query string, filter SearchFilter, k int) ([]LexicalHit, error)
}
