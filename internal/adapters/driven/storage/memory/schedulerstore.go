package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure SchedulerStore implements the interface.
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

type taskKey struct {
	sourceID string
	kind     domain.TaskKind
}

// SchedulerStore is an in-memory implementation of driven.SchedulerStore.
type SchedulerStore struct {
	mu      sync.RWMutex
	tasks   map[taskKey]domain.ScheduledTask
	results []domain.TaskResult
}

// NewSchedulerStore creates a new in-memory scheduler store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{tasks: make(map[taskKey]domain.ScheduledTask)}
}

// SaveTask stores or updates a task.
func (s *SchedulerStore) SaveTask(_ context.Context, task domain.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[taskKey{task.SourceID, task.Kind}] = task
	return nil
}

// GetTask retrieves one task.
func (s *SchedulerStore) GetTask(_ context.Context, sourceID string, kind domain.TaskKind) (*domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskKey{sourceID, kind}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &task, nil
}

// ListTasks returns all tasks.
func (s *SchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.ScheduledTask, 0, len(s.tasks))
	for key := range s.tasks {
		result = append(result, s.tasks[key])
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SourceID != result[j].SourceID {
			return result[i].SourceID < result[j].SourceID
		}
		return result[i].Kind < result[j].Kind
	})
	return result, nil
}

// DeleteTasks removes a source's tasks.
func (s *SchedulerStore) DeleteTasks(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.tasks {
		if key.sourceID == sourceID {
			delete(s.tasks, key)
		}
	}
	return nil
}

// SaveResult appends one execution result.
func (s *SchedulerStore) SaveResult(_ context.Context, result domain.TaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// ListResults returns the newest results, at most limit.
func (s *SchedulerStore) ListResults(_ context.Context, limit int) ([]domain.TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.results)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]domain.TaskResult, 0, n)
	for i := len(s.results) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, s.results[i])
	}
	return result, nil
}

// PruneResults drops all but the newest keep results.
func (s *SchedulerStore) PruneResults(_ context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) > keep {
		s.results = append([]domain.TaskResult(nil), s.results[len(s.results)-keep:]...)
	}
	return nil
}
