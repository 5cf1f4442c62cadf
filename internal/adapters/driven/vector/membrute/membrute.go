// Package membrute is an in-process vector index doing brute-force
// cosine similarity over all stored entries. It is the default backend
// for local setups and tests; corpora past a few hundred thousand
// chunks belong in Qdrant.
package membrute

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	vector    []float32
	magnitude float64
	payload   domain.IndexPayload
}

// Index is the brute-force vector index.
type Index struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty index.
func New() *Index {
	return &Index{entries: make(map[string]entry)}
}

// Upsert writes entries, idempotent by chunk id. Magnitudes are
// precomputed so queries only pay for dot products.
func (x *Index) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("upsert %s: empty vector", e.ChunkID)
		}
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		x.entries[e.ChunkID] = entry{
			vector:    vec,
			magnitude: magnitude(vec),
			payload:   e.Payload,
		}
	}
	return nil
}

// Delete removes entries by chunk id. Missing ids are not an error.
func (x *Index) Delete(_ context.Context, chunkIDs []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range chunkIDs {
		delete(x.entries, id)
	}
	return nil
}

// Query returns the top-k most similar chunks admitted by the filter.
func (x *Index) Query(_ context.Context, vector []float32, filter driven.SearchFilter, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	qm := magnitude(vector)
	if qm == 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(x.entries))
	for id, e := range x.entries {
		if len(e.vector) != len(vector) || e.magnitude == 0 {
			continue
		}
		if !admits(filter, e.payload) {
			continue
		}
		score := dot(vector, e.vector) / (qm * e.magnitude)
		if math.IsNaN(score) {
			continue
		}
		hits = append(hits, driven.VectorHit{ChunkID: id, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// Len reports how many entries the index holds.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Has reports whether a chunk id is present.
func (x *Index) Has(chunkID string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.entries[chunkID]
	return ok
}

func admits(filter driven.SearchFilter, payload domain.IndexPayload) bool {
	if len(filter.SourceIDs) > 0 && !contains(filter.SourceIDs, payload.SourceID) {
		return false
	}
	if len(filter.Languages) > 0 && !contains(filter.Languages, payload.Language) {
		return false
	}
	if len(filter.Categories) > 0 && !contains(filter.Categories, payload.Category) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func magnitude(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
