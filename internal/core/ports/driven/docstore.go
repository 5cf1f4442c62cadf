package driven

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// DocumentStore persists documents and their chunks. It is also the
// bookkeeper for which chunk ids belong to which document version — the
// indexer reads that to evict stale versions after a successful upsert.
type DocumentStore interface {
	// SaveDocument stores or updates a document by id.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document. Returns domain.ErrNotFound when
	// absent.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// DeleteDocument removes a document and all its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns a source's documents. Empty sourceID lists
	// everything.
	ListDocuments(ctx context.Context, sourceID string) ([]domain.Document, error)

	// ListDocumentIDs returns just the ids, for full-sync reconciliation.
	ListDocumentIDs(ctx context.Context, sourceID string) ([]string, error)

	// CountDocuments returns the number of documents for a source.
	CountDocuments(ctx context.Context, sourceID string) (int, error)

	// SaveChunks stores or updates chunks by id.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunk retrieves one chunk. Returns domain.ErrNotFound when absent.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks returns a document's chunks ordered by ordinal.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ChunkIDsOtherVersions returns ids of the document's chunks whose
	// version differs from the given one — the stale set to evict.
	ChunkIDsOtherVersions(ctx context.Context, documentID string, version int64) ([]string, error)

	// DeleteChunks removes chunks by id.
	DeleteChunks(ctx context.Context, ids []string) error
}
