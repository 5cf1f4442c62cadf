package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/core/ports/driving"
	"github.com/custodia-labs/korpus/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// snippetRunes caps result snippets.
const snippetRunes = 240

// SearchService runs hybrid retrieval: a semantic signal from the
// vector index and a keyword signal from the lexical index, fused by
// weighted min-max normalised scores. Either signal failing degrades
// the response to the surviving one instead of failing the query.
type SearchService struct {
	provider driven.EmbeddingProvider
	vector   driven.VectorIndex
	lexical  driven.LexicalIndex
	docs     driven.DocumentStore

	topK    int
	timeout time.Duration
}

// NewSearchService creates a hybrid search service.
func NewSearchService(
	provider driven.EmbeddingProvider,
	vector driven.VectorIndex,
	lexical driven.LexicalIndex,
	docs driven.DocumentStore,
	settings domain.RetrievalSettings,
) *SearchService {
	topK := settings.TopK
	if topK <= 0 {
		topK = domain.DefaultSettings().Retrieval.TopK
	}
	timeout := settings.SubSearchTimeout()
	if timeout <= 0 {
		timeout = domain.DefaultSettings().Retrieval.SubSearchTimeout()
	}

	return &SearchService{
		provider: provider,
		vector:   vector,
		lexical:  lexical,
		docs:     docs,
		topK:     topK,
		timeout:  timeout,
	}
}

// Search runs one hybrid query.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	opts = opts.Normalise()
	if opts.VectorWeight < 0 || opts.LexicalWeight < 0 {
		return nil, fmt.Errorf("%w: negative fusion weight", domain.ErrInvalidInput)
	}

	filter := driven.SearchFilter{
		SourceIDs:  opts.Sources,
		Languages:  opts.Languages,
		Categories: opts.Categories,
	}

	// A zero-weighted signal is not dispatched: its hits could not
	// affect the ranking and the round trip would be wasted.
	var (
		wg      sync.WaitGroup
		vecHits []driven.VectorHit
		lexHits []driven.LexicalHit
		vecErr  error
		lexErr  error
	)

	if opts.VectorWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			vecHits, vecErr = s.queryVector(subCtx, query, filter)
		}()
	}
	if opts.LexicalWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			lexHits, lexErr = s.lexical.Query(subCtx, query, filter, s.topK)
		}()
	}
	wg.Wait()

	dispatched := 0
	failed := 0
	for _, e := range []error{vecErr, lexErr} {
		if e != nil {
			failed++
		}
	}
	if opts.VectorWeight > 0 {
		dispatched++
	}
	if opts.LexicalWeight > 0 {
		dispatched++
	}
	if dispatched > 0 && failed == dispatched {
		if vecErr != nil {
			return nil, fmt.Errorf("all retrieval signals failed: %w", vecErr)
		}
		return nil, fmt.Errorf("all retrieval signals failed: %w", lexErr)
	}

	degraded := failed > 0
	if vecErr != nil {
		logger.Warn("vector signal degraded: %v", vecErr)
		vecHits = nil
	}
	if lexErr != nil {
		logger.Warn("lexical signal degraded: %v", lexErr)
		lexHits = nil
	}

	fused := fuseScores(vecHits, lexHits, opts.VectorWeight, opts.LexicalWeight)

	results, err := s.hydrate(ctx, fused, opts)
	if err != nil {
		return nil, err
	}

	return &domain.SearchResponse{Results: results, Degraded: degraded}, nil
}

func (s *SearchService) queryVector(ctx context.Context, query string, filter driven.SearchFilter) ([]driven.VectorHit, error) {
	vec, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.vector.Query(ctx, vec, filter, s.topK)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}
	return hits, nil
}

// hydrate resolves fused chunk hits into document-level results:
// chunks collapse to their best-scoring representative per document,
// rows evicted since indexing are dropped, recency breaks score ties.
func (s *SearchService) hydrate(ctx context.Context, fused []fusedHit, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	docCache := make(map[string]*domain.Document)
	seen := make(map[string]struct{})
	results := make([]domain.SearchResult, 0, opts.Limit)

	for _, hit := range fused {
		if hit.score < opts.MinScore {
			// fused is sorted best-first; everything after is below the
			// cutoff too.
			break
		}

		chunk, err := s.docs.GetChunk(ctx, hit.chunkID)
		if err != nil {
			// The index can briefly run ahead of the store around an
			// eviction; such hits are simply not servable.
			logger.Debug("dropping hit %s: %v", hit.chunkID, err)
			continue
		}

		if _, dup := seen[chunk.DocumentID]; dup {
			continue
		}

		doc, ok := docCache[chunk.DocumentID]
		if !ok {
			doc, err = s.docs.GetDocument(ctx, chunk.DocumentID)
			if err != nil {
				logger.Debug("dropping hit %s: document %s: %v", hit.chunkID, chunk.DocumentID, err)
				continue
			}
			docCache[chunk.DocumentID] = doc
		}

		seen[chunk.DocumentID] = struct{}{}
		results = append(results, domain.SearchResult{
			ChunkID:      chunk.ID,
			DocumentID:   doc.ID,
			SourceID:     doc.SourceID,
			Title:        doc.Title,
			URI:          doc.URI,
			Snippet:      snippetOf(chunk.Content),
			Score:        hit.score,
			VectorScore:  hit.vector,
			LexicalScore: hit.lexical,
			UpdatedAt:    doc.UpdatedAt,
		})
		if len(results) >= opts.Limit {
			break
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].UpdatedAt.Equal(results[j].UpdatedAt) {
			return results[i].UpdatedAt.After(results[j].UpdatedAt)
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	return results, nil
}

// fusedHit is one chunk after score fusion.
type fusedHit struct {
	chunkID string
	score   float64
	vector  float64
	lexical float64
}

// fuseScores min-max normalises each signal's scores to [0, 1] over its
// own candidate set, then combines them as a weighted sum. A chunk
// present in only one signal contributes zero from the other. A signal
// whose scores are all equal normalises to 1 for every hit it returned.
func fuseScores(vecHits []driven.VectorHit, lexHits []driven.LexicalHit, vectorWeight, lexicalWeight float64) []fusedHit {
	byChunk := make(map[string]*fusedHit, len(vecHits)+len(lexHits))
	get := func(id string) *fusedHit {
		if h, ok := byChunk[id]; ok {
			return h
		}
		h := &fusedHit{chunkID: id}
		byChunk[id] = h
		return h
	}

	if len(vecHits) > 0 {
		lo, hi := scoreRange(vecHits, func(h driven.VectorHit) float64 { return h.Score })
		for _, h := range vecHits {
			get(h.ChunkID).vector = normalise(h.Score, lo, hi)
		}
	}
	if len(lexHits) > 0 {
		lo, hi := scoreRange(lexHits, func(h driven.LexicalHit) float64 { return h.Score })
		for _, h := range lexHits {
			get(h.ChunkID).lexical = normalise(h.Score, lo, hi)
		}
	}

	fused := make([]fusedHit, 0, len(byChunk))
	for _, h := range byChunk {
		h.score = vectorWeight*h.vector + lexicalWeight*h.lexical
		fused = append(fused, *h)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].chunkID < fused[j].chunkID
	})
	return fused
}

func scoreRange[T any](hits []T, score func(T) float64) (lo, hi float64) {
	lo, hi = score(hits[0]), score(hits[0])
	for _, h := range hits[1:] {
		s := score(h)
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	return lo, hi
}

func normalise(s, lo, hi float64) float64 {
	if hi == lo {
		return 1
	}
	return (s - lo) / (hi - lo)
}

func snippetOf(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= snippetRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:snippetRunes]) + "…"
}
