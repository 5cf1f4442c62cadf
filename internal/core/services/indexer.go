package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/logger"
)

// Indexer writes chunk vectors and text into the indexes and evicts
// stale document versions. Mutations are sequenced through a single
// mutex: upsert-before-evict is the one cross-component ordering
// requirement, and enforcing it here keeps the rest of the pipeline
// lock-free.
type Indexer struct {
	vector  driven.VectorIndex
	lexical driven.LexicalIndex
	docs    driven.DocumentStore
	retry   domain.RetryPolicy

	mu sync.Mutex
}

// NewIndexer creates an indexer.
func NewIndexer(
	vector driven.VectorIndex,
	lexical driven.LexicalIndex,
	docs driven.DocumentStore,
	retry domain.RetryPolicy,
) *Indexer {
	return &Indexer{
		vector:  vector,
		lexical: lexical,
		docs:    docs,
		retry:   retry.Normalise(),
	}
}

// IndexDocument upserts the document's new-version chunks and only then
// evicts entries of older versions, so no query window ever sees the
// document with zero chunks. A failed upsert leaves the old version in
// place and queryable; the document's IndexedVersion then trails its
// Version until a later run completes the re-index.
func (ix *Indexer) IndexDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if ix.vector == nil {
		return domain.ErrVectorIndexUnavailable
	}
	if ix.lexical == nil {
		return domain.ErrSearchUnavailable
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	// Persist chunks first: version bookkeeping must survive a crash
	// between upsert and eviction.
	if err := ix.docs.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}

	entries := make([]domain.IndexEntry, len(chunks))
	payload := domain.IndexPayload{
		DocumentID: doc.ID,
		SourceID:   doc.SourceID,
		Title:      doc.Title,
		URI:        doc.URI,
		Language:   doc.Language,
		Category:   doc.Category,
		Version:    doc.Version,
		UpdatedAt:  doc.UpdatedAt,
	}
	for i := range chunks {
		entries[i] = domain.IndexEntry{
			ChunkID: chunks[i].ID,
			Vector:  chunks[i].Embedding,
			Payload: payload,
		}
	}

	err := retryWithPolicy(ctx, ix.retry, "vector upsert", func(ctx context.Context) error {
		return ix.vector.Upsert(ctx, entries)
	})
	if err != nil {
		return fmt.Errorf("%w: vector upsert for %s: %w", domain.ErrIndexWrite, doc.ID, err)
	}

	err = retryWithPolicy(ctx, ix.retry, "lexical index", func(ctx context.Context) error {
		return ix.lexical.Index(ctx, doc, chunks)
	})
	if err != nil {
		return fmt.Errorf("%w: lexical index for %s: %w", domain.ErrIndexWrite, doc.ID, err)
	}

	// The new version is fully live; now the old one can go.
	stale, err := ix.docs.ChunkIDsOtherVersions(ctx, doc.ID, doc.Version)
	if err != nil {
		return fmt.Errorf("listing stale chunks for %s: %w", doc.ID, err)
	}
	if len(stale) > 0 {
		if err := ix.deleteEntries(ctx, stale); err != nil {
			// Both versions are briefly queryable; IndexedVersion stays
			// behind so the next run redoes the eviction.
			return fmt.Errorf("%w: evicting stale version of %s: %w", domain.ErrIndexWrite, doc.ID, err)
		}
		if err := ix.docs.DeleteChunks(ctx, stale); err != nil {
			return fmt.Errorf("deleting stale chunks for %s: %w", doc.ID, err)
		}
		logger.Debug("evicted %d stale chunks of %s (version < %d)", len(stale), doc.ID, doc.Version)
	}

	doc.IndexedVersion = doc.Version
	if err := ix.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	return nil
}

// EvictDocument removes every trace of a document: index entries first,
// then the stored document and chunks.
func (ix *Indexer) EvictDocument(ctx context.Context, documentID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	chunks, err := ix.docs.GetChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("listing chunks for %s: %w", documentID, err)
	}

	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
	}
	if len(ids) > 0 {
		if err := ix.deleteEntries(ctx, ids); err != nil {
			return fmt.Errorf("%w: evicting %s: %w", domain.ErrIndexWrite, documentID, err)
		}
	}

	if err := ix.docs.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	return nil
}

// deleteEntries removes ids from both indexes.
func (ix *Indexer) deleteEntries(ctx context.Context, ids []string) error {
	if ix.vector != nil {
		err := retryWithPolicy(ctx, ix.retry, "vector delete", func(ctx context.Context) error {
			return ix.vector.Delete(ctx, ids)
		})
		if err != nil {
			return fmt.Errorf("vector delete: %w", err)
		}
	}
	if ix.lexical != nil {
		err := retryWithPolicy(ctx, ix.retry, "lexical delete", func(ctx context.Context) error {
			return ix.lexical.Delete(ctx, ids)
		})
		if err != nil {
			return fmt.Errorf("lexical delete: %w", err)
		}
	}
	return nil
}
