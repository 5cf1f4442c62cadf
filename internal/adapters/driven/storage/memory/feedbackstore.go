package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure FeedbackStore implements the interface.
var _ driven.FeedbackStore = (*FeedbackStore)(nil)

// FeedbackStore is an in-memory implementation of driven.FeedbackStore.
type FeedbackStore struct {
	mu      sync.RWMutex
	records []domain.Feedback
}

// NewFeedbackStore creates a new in-memory feedback store.
func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{}
}

// Save appends one feedback record.
func (s *FeedbackStore) Save(_ context.Context, fb *domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *fb)
	return nil
}

// List returns the newest records, at most limit.
func (s *FeedbackStore) List(_ context.Context, limit int) ([]domain.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]domain.Feedback, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, s.records[i])
	}
	return result, nil
}
