package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/core/ports/driving"
	"github.com/custodia-labs/korpus/internal/logger"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

// SourceService manages source lifecycle: registration probes the
// connector before anything is persisted, removal tears down documents,
// index entries, sync state and schedules together.
type SourceService struct {
	sources   driven.SourceStore
	states    driven.SyncStateStore
	docs      driven.DocumentStore
	schedules driven.SchedulerStore
	factory   driven.ConnectorFactory
	indexer   *Indexer
	scheduler domain.SchedulerSettings
}

// NewSourceService creates a source service.
func NewSourceService(
	sources driven.SourceStore,
	states driven.SyncStateStore,
	docs driven.DocumentStore,
	schedules driven.SchedulerStore,
	factory driven.ConnectorFactory,
	indexer *Indexer,
	scheduler domain.SchedulerSettings,
) *SourceService {
	return &SourceService{
		sources:   sources,
		states:    states,
		docs:      docs,
		schedules: schedules,
		factory:   factory,
		indexer:   indexer,
		scheduler: scheduler,
	}
}

// Add validates, probes and registers a new source.
func (s *SourceService) Add(ctx context.Context, source domain.Source) (*domain.Source, error) {
	if source.ID == "" {
		source.ID = uuid.New().String()
	}
	if err := source.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.sources.Get(ctx, source.ID); err == nil {
		return nil, fmt.Errorf("source %s: %w", source.ID, domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check source: %w", err)
	}

	// Probe before persisting so a broken credential or URL is caught
	// at add time, not at the first scheduled sync.
	connector, err := s.factory.Create(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	defer connector.Close()
	if err := connector.Validate(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}

	now := time.Now().UTC()
	source.CreatedAt = now
	source.UpdatedAt = now
	if err := s.sources.Save(ctx, source); err != nil {
		return nil, fmt.Errorf("save source: %w", err)
	}

	if err := s.schedule(ctx, source.ID); err != nil {
		logger.Warn("scheduling source %s: %v", source.ID, err)
	}

	logger.Info("added source %s (%s)", source.Name, source.Type)
	return &source, nil
}

func (s *SourceService) schedule(ctx context.Context, sourceID string) error {
	tasks := []domain.ScheduledTask{
		{SourceID: sourceID, Kind: domain.TaskIncremental, Interval: s.scheduler.SyncInterval()},
		{SourceID: sourceID, Kind: domain.TaskFull, Interval: s.scheduler.FullInterval()},
	}
	for _, task := range tasks {
		if task.Interval <= 0 {
			continue
		}
		if err := s.schedules.SaveTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves one source.
func (s *SourceService) Get(ctx context.Context, id string) (*domain.Source, error) {
	return s.sources.Get(ctx, id)
}

// List returns all sources.
func (s *SourceService) List(ctx context.Context) ([]domain.Source, error) {
	return s.sources.List(ctx)
}

// Remove deletes a source and everything derived from it. Index
// evictions run first so a failure there leaves the source present and
// the removal retryable.
func (s *SourceService) Remove(ctx context.Context, id string) error {
	if _, err := s.sources.Get(ctx, id); err != nil {
		return fmt.Errorf("get source: %w", err)
	}

	docIDs, err := s.docs.ListDocumentIDs(ctx, id)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	for _, docID := range docIDs {
		if err := s.indexer.EvictDocument(ctx, docID); err != nil {
			return fmt.Errorf("evict document %s: %w", docID, err)
		}
	}

	if err := s.states.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete sync state: %w", err)
	}
	if err := s.schedules.DeleteTasks(ctx, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if err := s.sources.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}

	logger.Info("removed source %s with %d documents", id, len(docIDs))
	return nil
}

// SetEnabled toggles scheduled syncing for a source.
func (s *SourceService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	source, err := s.sources.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get source: %w", err)
	}
	if source.Enabled == enabled {
		return nil
	}
	source.Enabled = enabled
	source.UpdatedAt = time.Now().UTC()
	if err := s.sources.Save(ctx, *source); err != nil {
		return fmt.Errorf("save source: %w", err)
	}
	return nil
}
