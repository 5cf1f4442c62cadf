package driven

import (
	"context"
	"fmt"
)

// EmbeddingProvider generates vector embeddings for text.
type EmbeddingProvider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	// The result preserves input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the model identifier, used as the cache key
	// namespace so switching models never serves stale vectors.
	ModelName() string

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ProviderError is a backend failure carrying the HTTP status, letting
// the embedding stage distinguish transient faults from permanent ones.
type ProviderError struct {
	// StatusCode is the HTTP status, 0 for transport-level failures.
	StatusCode int

	// Message is the backend's error body or a transport description.
	Message string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("embedding backend: %s", e.Message)
	}
	return fmt.Sprintf("embedding backend: status %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether the failure is worth retrying: transport
// errors, timeouts, throttling and server-side faults. Client errors
// (oversized input, invalid encoding) are permanent.
func (e *ProviderError) Transient() bool {
	if e.StatusCode == 0 {
		return true
	}
	switch e.StatusCode {
	case 408, 429:
		return true
	}
	return e.StatusCode >= 500
}
