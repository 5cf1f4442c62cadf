package driven

import "context"

// EmbeddingCache is the content-addressed vector cache. Chunk ids
// already encode (document, version, ordinal), so a hit means the exact
// text was embedded before and the backend call can be skipped — the
// primary cost-control mechanism of the pipeline.
//
// Entries are namespaced by model name: switching the embedding model
// invalidates nothing but matches nothing either.
type EmbeddingCache interface {
	// Get returns cached vectors for the given chunk ids. Missing ids
	// are simply absent from the result map.
	Get(ctx context.Context, model string, chunkIDs []string) (map[string][]float32, error)

	// Put stores one chunk's vector.
	Put(ctx context.Context, model string, chunkID string, vector []float32) error
}
