package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure LexicalIndex implements the interface.
var _ driven.LexicalIndex = (*LexicalIndex)(nil)

type lexicalEntry struct {
	documentID string
	sourceID   string
	language   string
	category   string
	terms      map[string]int
	length     int
}

// LexicalIndex is a naive in-memory keyword index: term-frequency
// scoring over lowercased whitespace tokens. It exists for tests and
// small local corpora; the SQLite FTS5 adapter is the real one.
type LexicalIndex struct {
	mu      sync.RWMutex
	entries map[string]lexicalEntry
}

// NewLexicalIndex creates a new in-memory lexical index.
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{entries: make(map[string]lexicalEntry)}
}

// Index writes the chunks of one document.
func (l *LexicalIndex) Index(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, chunk := range chunks {
		terms := make(map[string]int)
		tokens := strings.Fields(strings.ToLower(chunk.Content))
		for _, tok := range tokens {
			terms[strings.Trim(tok, ".,;:!?\"'()[]{}")]++
		}
		l.entries[chunk.ID] = lexicalEntry{
			documentID: doc.ID,
			sourceID:   doc.SourceID,
			language:   doc.Language,
			category:   doc.Category,
			terms:      terms,
			length:     len(tokens),
		}
	}
	return nil
}

// Delete removes entries by chunk id.
func (l *LexicalIndex) Delete(_ context.Context, chunkIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range chunkIDs {
		delete(l.entries, id)
	}
	return nil
}

// Query returns the top-k keyword matches admitted by the filter.
func (l *LexicalIndex) Query(_ context.Context, query string, filter driven.SearchFilter, k int) ([]driven.LexicalHit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var hits []driven.LexicalHit
	for id, entry := range l.entries {
		if !admits(filter, entry) {
			continue
		}
		score := 0.0
		for _, term := range terms {
			score += float64(entry.terms[strings.Trim(term, ".,;:!?\"'()[]{}")])
		}
		if score == 0 {
			continue
		}
		if entry.length > 0 {
			score /= float64(entry.length)
		}
		hits = append(hits, driven.LexicalHit{ChunkID: id, Score: score})
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

func admits(filter driven.SearchFilter, entry lexicalEntry) bool {
	if len(filter.SourceIDs) > 0 && !contains(filter.SourceIDs, entry.sourceID) {
		return false
	}
	if len(filter.Languages) > 0 && !contains(filter.Languages, entry.language) {
		return false
	}
	if len(filter.Categories) > 0 && !contains(filter.Categories, entry.category) {
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
