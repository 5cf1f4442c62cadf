package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure SyncStateStore implements the interface.
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// SyncStateStore is an in-memory implementation of driven.SyncStateStore.
type SyncStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.SyncState
}

// NewSyncStateStore creates a new in-memory sync state store.
func NewSyncStateStore() *SyncStateStore {
	return &SyncStateStore{states: make(map[string]domain.SyncState)}
}

// Save stores or updates a source's sync state.
func (s *SyncStateStore) Save(_ context.Context, state domain.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.SourceID] = state
	return nil
}

// Get retrieves a source's sync state.
func (s *SyncStateStore) Get(_ context.Context, sourceID string) (*domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// Delete removes a source's sync state.
func (s *SyncStateStore) Delete(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sourceID)
	return nil
}

// Ensure SyncRunStore implements the interface.
var _ driven.SyncRunStore = (*SyncRunStore)(nil)

// SyncRunStore is an in-memory implementation of driven.SyncRunStore.
type SyncRunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.SyncRun
}

// NewSyncRunStore creates a new in-memory sync run store.
func NewSyncRunStore() *SyncRunStore {
	return &SyncRunStore{runs: make(map[string]domain.SyncRun)}
}

// Save stores or updates a run.
func (s *SyncRunStore) Save(_ context.Context, run *domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

// Get retrieves a run by ID.
func (s *SyncRunStore) Get(_ context.Context, id string) (*domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// Latest returns a source's most recent run by start time.
func (s *SyncRunStore) Latest(_ context.Context, sourceID string) (*domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.SyncRun
	for id := range s.runs {
		run := s.runs[id]
		if run.SourceID != sourceID {
			continue
		}
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = &run
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

// ListBySource returns a source's runs, newest first.
func (s *SyncRunStore) ListBySource(_ context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.SyncRun
	for id := range s.runs {
		if s.runs[id].SourceID == sourceID {
			result = append(result, s.runs[id])
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Prune drops all but the newest keep runs per source.
func (s *SyncRunStore) Prune(_ context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bySource := make(map[string][]domain.SyncRun)
	for id := range s.runs {
		run := s.runs[id]
		bySource[run.SourceID] = append(bySource[run.SourceID], run)
	}
	for _, runs := range bySource {
		if len(runs) <= keep {
			continue
		}
		sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
		for _, run := range runs[keep:] {
			delete(s.runs, run.ID)
		}
	}
	return nil
}
