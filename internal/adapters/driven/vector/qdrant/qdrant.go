// Package qdrant is a vector index backed by a Qdrant server over its
// REST API. It creates the collection on first use with cosine
// distance and stores the document metadata snapshot as the point
// payload so filtered queries resolve inside Qdrant.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "korpus_chunks"
	DefaultTimeout    = 15 * time.Second
)

// Config holds configuration for the Qdrant vector index.
type Config struct {
	// URL is the Qdrant base URL (default: http://localhost:6333).
	URL string

	// APIKey authenticates requests, if the server requires one.
	APIKey string

	// Collection is the collection name (default: korpus_chunks).
	Collection string

	// Timeout is the per-request timeout (default: 15s).
	Timeout time.Duration
}

// Index is the Qdrant-backed vector index.
type Index struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
}

// pointPayload is the JSON payload stored with each point. The chunk
// id rides along because Qdrant point ids are UUID-formatted.
type pointPayload struct {
	ChunkID string `json:"chunk_id"`
	domain.IndexPayload
}

// NewIndex creates a Qdrant vector index client.
func NewIndex(cfg Config) *Index {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Index{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
	}
}

// EnsureCollection creates the collection with cosine distance if it
// does not exist yet. The dimension comes from the embedding provider
// at wiring time.
func (x *Index) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: vector dimensions must be positive", domain.ErrInvalidInput)
	}

	status, _, err := x.do(ctx, http.MethodGet, "/collections/"+x.collection, nil)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("checking collection: unexpected status %d", status)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	status, respBody, err := x.do(ctx, http.MethodPut, "/collections/"+x.collection, body)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("creating collection: %s", apiError(status, respBody))
	}
	return nil
}

// Upsert writes entries, idempotent by chunk id.
func (x *Index) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		points[i] = map[string]any{
			"id":     pointID(e.ChunkID),
			"vector": e.Vector,
			"payload": pointPayload{
				ChunkID:      e.ChunkID,
				IndexPayload: e.Payload,
			},
		}
	}

	path := "/collections/" + x.collection + "/points?wait=true"
	status, body, err := x.do(ctx, http.MethodPut, path, map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("upserting points: %s", apiError(status, body))
	}
	return nil
}

// Delete removes entries by chunk id. Missing ids are not an error.
func (x *Index) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	ids := make([]string, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = pointID(id)
	}

	path := "/collections/" + x.collection + "/points/delete?wait=true"
	status, body, err := x.do(ctx, http.MethodPost, path, map[string]any{"points": ids})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("deleting points: %s", apiError(status, body))
	}
	return nil
}

// Query returns the top-k most similar chunks admitted by the filter.
func (x *Index) Query(ctx context.Context, vector []float32, filter driven.SearchFilter, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if cond := filterConditions(filter); cond != nil {
		req["filter"] = map[string]any{"must": cond}
	}

	path := "/collections/" + x.collection + "/points/search"
	status, body, err := x.do(ctx, http.MethodPost, path, req)
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("searching points: %s", apiError(status, body))
	}

	var resp struct {
		Result []struct {
			ID      string       `json:"id"`
			Score   float64      `json:"score"`
			Payload pointPayload `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunkID := r.Payload.ChunkID
		if chunkID == "" {
			chunkID = strings.ReplaceAll(r.ID, "-", "")
		}
		hits = append(hits, driven.VectorHit{ChunkID: chunkID, Score: r.Score})
	}
	return hits, nil
}

// Close releases idle connections.
func (x *Index) Close() error {
	x.client.CloseIdleConnections()
	return nil
}

// do sends one JSON request and returns the status code and body.
func (x *Index) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// filterConditions translates a search filter into Qdrant match-any
// clauses. Nil means no filtering.
func filterConditions(filter driven.SearchFilter) []map[string]any {
	var conditions []map[string]any //nolint:prealloc // most filters are empty
	add := func(key string, values []string) {
		if len(values) == 0 {
			return
		}
		conditions = append(conditions, map[string]any{
			"key":   key,
			"match": map[string]any{"any": values},
		})
	}
	add("source_id", filter.SourceIDs)
	add("language", filter.Languages)
	add("category", filter.Categories)
	return conditions
}

// pointID formats a chunk id as the UUID form Qdrant requires for
// point ids. Chunk ids are 32 hex characters, exactly one UUID worth.
func pointID(chunkID string) string {
	if len(chunkID) != 32 {
		return chunkID
	}
	return chunkID[:8] + "-" + chunkID[8:12] + "-" + chunkID[12:16] + "-" + chunkID[16:20] + "-" + chunkID[20:]
}

// apiError extracts the error message from a Qdrant response body.
func apiError(status int, body []byte) string {
	var resp struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Status.Error != "" {
		return fmt.Sprintf("status %d: %s", status, resp.Status.Error)
	}
	return fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(body)))
}
