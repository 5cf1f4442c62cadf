package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure EmbeddingCache implements the interface.
var _ driven.EmbeddingCache = (*EmbeddingCache)(nil)

// EmbeddingCache is an in-memory implementation of driven.EmbeddingCache.
type EmbeddingCache struct {
	mu      sync.RWMutex
	vectors map[string]map[string][]float32
}

// NewEmbeddingCache creates a new in-memory embedding cache.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{vectors: make(map[string]map[string][]float32)}
}

// Get returns cached vectors for the given chunk ids.
func (c *EmbeddingCache) Get(_ context.Context, model string, chunkIDs []string) (map[string][]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	byModel, ok := c.vectors[model]
	if !ok {
		return map[string][]float32{}, nil
	}
	result := make(map[string][]float32, len(chunkIDs))
	for _, id := range chunkIDs {
		if vec, ok := byModel[id]; ok {
			out := make([]float32, len(vec))
			copy(out, vec)
			result[id] = out
		}
	}
	return result, nil
}

// Put stores one chunk's vector.
func (c *EmbeddingCache) Put(_ context.Context, model string, chunkID string, vector []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	byModel, ok := c.vectors[model]
	if !ok {
		byModel = make(map[string][]float32)
		c.vectors[model] = byModel
	}
	stored := make([]float32, len(vector))
	copy(stored, vector)
	byModel[chunkID] = stored
	return nil
}

// Len reports how many vectors one model's namespace holds.
func (c *EmbeddingCache) Len(model string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors[model])
}
