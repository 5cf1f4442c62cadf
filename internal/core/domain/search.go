package domain

import "time"

// Default retrieval parameters.
const (
	// DefaultSearchLimit is the result count returned when unspecified.
	DefaultSearchLimit = 10

	// DefaultVectorWeight and DefaultLexicalWeight bias fusion towards
	// the semantic signal.
	DefaultVectorWeight  = 0.7
	DefaultLexicalWeight = 0.3

	// DefaultMinScore is the relevance cutoff below which fused results
	// are dropped rather than returned with misleading confidence.
	DefaultMinScore = 0.05
)

// SearchOptions controls one hybrid query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Sources, Languages and Categories pre-filter candidates before
	// scoring, never after, so top-K selection is not skewed.
	Sources    []string
	Languages  []string
	Categories []string

	// VectorWeight and LexicalWeight are the fusion weights. A zero-
	// weighted signal is not dispatched at all.
	VectorWeight  float64
	LexicalWeight float64

	// MinScore is the fused-score cutoff.
	MinScore float64
}

// DefaultSearchOptions returns the standard hybrid configuration.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Limit:         DefaultSearchLimit,
		VectorWeight:  DefaultVectorWeight,
		LexicalWeight: DefaultLexicalWeight,
		MinScore:      DefaultMinScore,
	}
}

// Normalise fills unset options with defaults.
func (o SearchOptions) Normalise() SearchOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultSearchLimit
	}
	if o.VectorWeight == 0 && o.LexicalWeight == 0 {
		o.VectorWeight = DefaultVectorWeight
		o.LexicalWeight = DefaultLexicalWeight
	}
	if o.MinScore < 0 {
		o.MinScore = 0
	}
	return o
}

// SearchResult is one fused, document-level result. Multiple chunks of
// the same document collapse to the best-scoring one.
type SearchResult struct {
	// ChunkID identifies the best-scoring chunk.
	ChunkID string

	// DocumentID, SourceID, Title and URI describe the owning document.
	DocumentID string
	SourceID   string
	Title      string
	URI        string

	// Snippet is a short extract from the best chunk.
	Snippet string

	// Score is the fused relevance in [0, 1].
	Score float64

	// VectorScore and LexicalScore are the normalised per-signal scores
	// that produced the fusion. Zero when the signal had no hit.
	VectorScore  float64
	LexicalScore float64

	// UpdatedAt is the document's recency, used as the fusion tie-break.
	UpdatedAt time.Time
}

// SearchResponse carries ranked results plus degradation state.
type SearchResponse struct {
	// Results are ranked best-first.
	Results []SearchResult

	// Degraded is set when one retrieval signal timed out or failed and
	// the ranking fell back to the surviving signal.
	Degraded bool
}

// IndexPayload is the document metadata snapshot stored alongside each
// vector so filtered queries never need a second lookup.
type IndexPayload struct {
	DocumentID string    `json:"document_id"`
	SourceID   string    `json:"source_id"`
	Title      string    `json:"title"`
	URI        string    `json:"uri"`
	Language   string    `json:"language"`
	Category   string    `json:"category"`
	Version    int64     `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IndexEntry is one chunk as written to the vector store.
type IndexEntry struct {
	// ChunkID is the content-addressed point id; upsert is idempotent
	// over it.
	ChunkID string

	// Vector is the chunk embedding.
	Vector []float32

	// Payload is the filterable metadata snapshot.
	Payload IndexPayload
}
