package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string]domain.Chunk),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	for chunkID, chunk := range s.chunks {
		if chunk.DocumentID == id {
			delete(s.chunks, chunkID)
		}
	}
	return nil
}

// ListDocuments returns documents for a source. Empty sourceID lists all.
func (s *DocumentStore) ListDocuments(_ context.Context, sourceID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Document
	for id := range s.documents {
		doc := s.documents[id]
		if sourceID == "" || doc.SourceID == sourceID {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListDocumentIDs returns document ids for a source.
func (s *DocumentStore) ListDocumentIDs(_ context.Context, sourceID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, doc := range s.documents {
		if sourceID == "" || doc.SourceID == sourceID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CountDocuments returns the number of documents for a source.
func (s *DocumentStore) CountDocuments(_ context.Context, sourceID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, doc := range s.documents {
		if sourceID == "" || doc.SourceID == sourceID {
			count++
		}
	}
	return count, nil
}

// SaveChunks stores or updates chunks by id.
func (s *DocumentStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *DocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

// GetChunks returns a document's chunks ordered by ordinal.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Chunk
	for _, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			result = append(result, chunk)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Ordinal < result[j].Ordinal })
	return result, nil
}

// ChunkIDsOtherVersions returns ids of the document's chunks whose
// version differs from the given one.
func (s *DocumentStore) ChunkIDsOtherVersions(_ context.Context, documentID string, version int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, chunk := range s.chunks {
		if chunk.DocumentID == documentID && chunk.Version != version {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteChunks removes chunks by id.
func (s *DocumentStore) DeleteChunks(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.chunks, id)
	}
	return nil
}
