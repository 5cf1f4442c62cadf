package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/core/ports/driving"
	"github.com/custodia-labs/korpus/internal/logger"
)

// Ensure SchedulerService implements the interface.
var _ driving.Scheduler = (*SchedulerService)(nil)

const (
	// sweepTick is how often due tasks are checked.
	sweepTick = 30 * time.Second

	// resultKeep bounds the stored execution history.
	resultKeep = 200
)

// SchedulerService runs the background sweep: every tick it finds due
// tasks and fires syncs for them, a frequent incremental pass per
// source plus a slower full pass that reconciles deletions. A source
// already syncing skips its slot and is recorded as skipped; nothing
// queues behind a held lock.
type SchedulerService struct {
	schedules driven.SchedulerStore
	sources   driven.SourceStore
	sync      driving.SyncOrchestrator
	settings  domain.SchedulerSettings

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

// NewSchedulerService creates a scheduler.
func NewSchedulerService(
	schedules driven.SchedulerStore,
	sources driven.SourceStore,
	sync driving.SyncOrchestrator,
	settings domain.SchedulerSettings,
) *SchedulerService {
	return &SchedulerService{
		schedules: schedules,
		sources:   sources,
		sync:      sync,
		settings:  settings,
	}
}

// Start begins the sweep loop and blocks until the context is cancelled
// or Stop is called.
func (s *SchedulerService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("%w: scheduler already running", domain.ErrAlreadyExists)
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	logger.Info("scheduler started: incremental every %s, full every %s",
		s.settings.SyncInterval(), s.settings.FullInterval())

	ticker := time.NewTicker(sweepTick)
	defer ticker.Stop()

	// Sweep once at startup so a long sync interval does not leave a
	// fresh process idle.
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop halts the sweep loop.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// Tasks returns the current schedule.
func (s *SchedulerService) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return s.schedules.ListTasks(ctx)
}

// History returns recent executions, newest first.
func (s *SchedulerService) History(ctx context.Context, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = resultKeep
	}
	return s.schedules.ListResults(ctx, limit)
}

// sweep runs every due task once. When a source's full and incremental
// tasks are both due, only the full one fires: a full pass is a
// superset of an incremental pass.
func (s *SchedulerService) sweep(ctx context.Context) {
	sources, err := s.sources.List(ctx)
	if err != nil {
		logger.Warn("sweep: listing sources: %v", err)
		return
	}

	now := time.Now().UTC()
	due := make([]domain.ScheduledTask, 0, len(sources))
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		full := s.taskFor(ctx, src.ID, domain.TaskFull, s.settings.FullInterval())
		incr := s.taskFor(ctx, src.ID, domain.TaskIncremental, s.settings.SyncInterval())

		switch {
		case full.Interval > 0 && full.Due(now):
			due = append(due, full)
		case incr.Interval > 0 && incr.Due(now):
			due = append(due, incr)
		}
	}
	if len(due) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runAllConcurrency)
	for _, task := range due {
		g.Go(func() error {
			s.runTask(gctx, task, now)
			return nil
		})
	}
	_ = g.Wait()

	if err := s.schedules.PruneResults(ctx, resultKeep); err != nil {
		logger.Warn("sweep: pruning history: %v", err)
	}
}

// taskFor loads a task, seeding it on first sight so sources added
// before the scheduler existed still get swept.
func (s *SchedulerService) taskFor(ctx context.Context, sourceID string, kind domain.TaskKind, interval time.Duration) domain.ScheduledTask {
	task, err := s.schedules.GetTask(ctx, sourceID, kind)
	if err == nil {
		return *task
	}
	if !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("sweep: loading task %s/%s: %v", sourceID, kind, err)
	}
	return domain.ScheduledTask{SourceID: sourceID, Kind: kind, Interval: interval}
}

func (s *SchedulerService) runTask(ctx context.Context, task domain.ScheduledTask, now time.Time) {
	mode := domain.SyncModeIncremental
	if task.Kind == domain.TaskFull {
		mode = domain.SyncModeFull
	}

	result := domain.TaskResult{
		SourceID:  task.SourceID,
		Kind:      task.Kind,
		StartedAt: now,
	}

	run, err := s.sync.Run(ctx, task.SourceID, mode)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		result.Error = err.Error()
		logger.Debug("sweep: %s busy, slot skipped", task.SourceID)
	case err != nil:
		result.Error = err.Error()
	}
	if run != nil {
		result.RunID = run.ID
	}
	result.EndedAt = time.Now().UTC()

	// The cadence is fixed: the next slot counts from this attempt,
	// succeed or fail, so a flapping source cannot tighten its own loop.
	task.LastRun = now
	task.NextRun = now.Add(task.Interval)
	if err := s.schedules.SaveTask(ctx, task); err != nil {
		logger.Warn("sweep: saving task %s/%s: %v", task.SourceID, task.Kind, err)
	}
	if err := s.schedules.SaveResult(ctx, result); err != nil {
		logger.Warn("sweep: saving result for %s: %v", task.SourceID, err)
	}
}
