package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/core/ports/driving"
	"github.com/custodia-labs/korpus/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// runAllConcurrency bounds how many sources sync at once during a
// fan-out. Each source is further serialised by its own lock.
const runAllConcurrency = 4

// SyncOrchestrator coordinates ingestion runs. Each source is guarded
// by an entry in the lock table: concurrent runs for different sources
// proceed in parallel, a duplicate trigger for the same source is
// rejected with domain.ErrSyncInProgress.
type SyncOrchestrator struct {
	sourceStore driven.SourceStore
	stateStore  driven.SyncStateStore
	runStore    driven.SyncRunStore
	docStore    driven.DocumentStore
	factory     driven.ConnectorFactory
	registry    driven.NormaliserRegistry
	pipeline    driven.PostProcessorPipeline
	embedder    *Embedder
	indexer     *Indexer

	workers    int
	queueDepth int
	retry      domain.RetryPolicy

	locks *lockTable

	mu      sync.RWMutex
	active  map[string]*domain.SyncRun
	cancels map[string]context.CancelFunc
}

// NewSyncOrchestrator creates a sync orchestrator.
func NewSyncOrchestrator(
	sourceStore driven.SourceStore,
	stateStore driven.SyncStateStore,
	runStore driven.SyncRunStore,
	docStore driven.DocumentStore,
	factory driven.ConnectorFactory,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder *Embedder,
	indexer *Indexer,
	settings domain.PipelineSettings,
) *SyncOrchestrator {
	workers := settings.Workers
	if workers <= 0 {
		workers = domain.DefaultSettings().Pipeline.Workers
	}
	queueDepth := settings.QueueDepth
	if queueDepth <= 0 {
		queueDepth = domain.DefaultSettings().Pipeline.QueueDepth
	}

	return &SyncOrchestrator{
		sourceStore: sourceStore,
		stateStore:  stateStore,
		runStore:    runStore,
		docStore:    docStore,
		factory:     factory,
		registry:    registry,
		pipeline:    pipeline,
		embedder:    embedder,
		indexer:     indexer,
		workers:     workers,
		queueDepth:  queueDepth,
		retry:       settings.RetryPolicy(),
		locks:       newLockTable(),
		active:      make(map[string]*domain.SyncRun),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Run executes one sync for a source.
func (o *SyncOrchestrator) Run(ctx context.Context, sourceID string, mode domain.SyncMode) (*domain.SyncRun, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: sync mode %q", domain.ErrInvalidInput, mode)
	}

	source, err := o.sourceStore.Get(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}

	if !o.locks.TryAcquire(sourceID) {
		return nil, fmt.Errorf("source %s: %w", sourceID, domain.ErrSyncInProgress)
	}
	defer o.locks.Release(sourceID)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := &domain.SyncRun{
		ID:        uuid.New().String(),
		SourceID:  sourceID,
		Mode:      mode,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	o.track(run, cancel)
	defer o.untrack(sourceID)

	if err := o.runStore.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	logger.Section(fmt.Sprintf("Sync %s (%s)", source.Name, mode))

	o.execute(runCtx, source, run)

	run.EndedAt = time.Now().UTC()
	// The parent context may already be gone; persist on a detached one.
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer saveCancel()
	if err := o.runStore.Save(saveCtx, run); err != nil {
		logger.Warn("saving run %s: %v", run.ID, err)
	}

	logger.Info("sync %s finished: %s, %d listed, %d indexed, %d unchanged, %d deferred, %d failed",
		run.ID, run.Status, run.Stats.Listed, run.Stats.Indexed,
		run.Stats.Unchanged, run.Stats.Deferred, run.Stats.Failed)

	if run.Status == domain.RunStatusFailed && run.Error != "" {
		return run, errors.New(run.Error)
	}
	return run, nil
}

// RunAll syncs every enabled source, bounded-concurrently. Per-source
// failures are carried in the returned runs, not as an error.
func (o *SyncOrchestrator) RunAll(ctx context.Context, mode domain.SyncMode) ([]*domain.SyncRun, error) {
	sources, err := o.sourceStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	var (
		resMu sync.Mutex
		runs  []*domain.SyncRun
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runAllConcurrency)
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		g.Go(func() error {
			run, err := o.Run(gctx, src.ID, mode)
			if err != nil && !errors.Is(err, domain.ErrSyncInProgress) {
				logger.Warn("sync %s: %v", src.ID, err)
			}
			if run != nil {
				resMu.Lock()
				runs = append(runs, run)
				resMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return runs, err
	}
	return runs, nil
}

// Cancel requests cooperative cancellation of a running sync.
func (o *SyncOrchestrator) Cancel(sourceID string) bool {
	o.mu.RLock()
	cancel, ok := o.cancels[sourceID]
	o.mu.RUnlock()
	if ok {
		cancel()
	}
	return ok
}

// Status reports one source's sync health.
func (o *SyncOrchestrator) Status(ctx context.Context, sourceID string) (*domain.SyncStatus, error) {
	source, err := o.sourceStore.Get(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	status := o.statusOf(ctx, source)
	return &status, nil
}

// StatusAll reports sync health for every source.
func (o *SyncOrchestrator) StatusAll(ctx context.Context) ([]domain.SyncStatus, error) {
	sources, err := o.sourceStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	statuses := make([]domain.SyncStatus, 0, len(sources))
	for i := range sources {
		statuses = append(statuses, o.statusOf(ctx, &sources[i]))
	}
	return statuses, nil
}

func (o *SyncOrchestrator) statusOf(ctx context.Context, source *domain.Source) domain.SyncStatus {
	status := domain.SyncStatus{
		SourceID:   source.ID,
		SourceName: source.Name,
		Running:    o.locks.Held(source.ID),
	}

	if state, err := o.stateStore.Get(ctx, source.ID); err == nil {
		status.Cursor = state.Cursor
		status.LastSync = state.LastSync
		status.LastFull = state.LastFull
	}

	o.mu.RLock()
	live, ok := o.active[source.ID]
	o.mu.RUnlock()
	if ok {
		snapshot := *live
		status.LastRun = &snapshot
		return status
	}

	if last, err := o.runStore.Latest(ctx, source.ID); err == nil {
		status.LastRun = last
	}
	return status
}

func (o *SyncOrchestrator) track(run *domain.SyncRun, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active[run.SourceID] = run
	o.cancels[run.SourceID] = cancel
}

func (o *SyncOrchestrator) untrack(sourceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, sourceID)
	delete(o.cancels, sourceID)
}

// itemResult is what one pipeline worker hands to the indexing consumer.
type itemResult struct {
	ref       domain.ChangeRef
	doc       *domain.Document
	chunks    []domain.Chunk
	unchanged bool
	skipped   bool
	failure   *domain.ItemFailure
}

// execute drives one run to a terminal state, mutating run in place.
// Stage layout: a worker pool fetches, normalises and chunks items off
// a bounded channel; a single consumer embeds and indexes, so index
// mutation for the source stays ordered while slow connectors cannot
// starve the embedding stage.
func (o *SyncOrchestrator) execute(ctx context.Context, source *domain.Source, run *domain.SyncRun) {
	connector, err := o.factory.Create(ctx, *source)
	if err != nil {
		o.fail(run, fmt.Errorf("create connector: %w", err))
		return
	}
	defer connector.Close()

	if err := connector.Validate(ctx); err != nil {
		o.fail(run, fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err))
		return
	}

	var state domain.SyncState
	if stored, err := o.stateStore.Get(ctx, source.ID); err == nil {
		state = *stored
	} else if !errors.Is(err, domain.ErrNotFound) {
		o.fail(run, fmt.Errorf("get sync state: %w", err))
		return
	}

	caps := connector.Capabilities()
	since := state.Cursor
	if run.Mode == domain.SyncModeFull || !caps.SupportsIncremental {
		since = ""
	}

	var (
		refs           []domain.ChangeRef
		proposedCursor string
	)
	err = retryWithPolicy(ctx, o.retry, "list changes", func(ctx context.Context) error {
		var lerr error
		refs, proposedCursor, lerr = connector.ListChanged(ctx, since)
		return lerr
	})
	if err != nil {
		// Listing is all-or-nothing: without the change set there is
		// nothing to partially process.
		o.fail(run, fmt.Errorf("%w: list changes: %w", domain.ErrConnectorUnavailable, err))
		return
	}

	o.setStat(run, func(s *domain.SyncStats) { s.Listed = len(refs) })
	logger.Info("source %s reported %d changes", source.ID, len(refs))

	refCh := make(chan domain.ChangeRef, o.queueDepth)
	resCh := make(chan itemResult, o.queueDepth)

	var wg sync.WaitGroup
	for range o.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range refCh {
				resCh <- o.processItem(ctx, source, connector, ref)
			}
		}()
	}

	go func() {
		defer close(refCh)
		for _, ref := range refs {
			if !source.AcceptsCategory(ref.Category) {
				resCh <- itemResult{ref: ref, skipped: true}
				continue
			}
			select {
			case refCh <- ref:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resCh)
	}()

	observed := make(map[string]struct{}, len(refs))
	var maxSuccess time.Time

	success := func(ts time.Time) {
		if ts.After(maxSuccess) {
			maxSuccess = ts
		}
	}

	for res := range resCh {
		if res.ref.Kind == domain.ChangeUpsert {
			observed[domain.DocumentID(source.ID, res.ref.ExternalID)] = struct{}{}
		}

		switch {
		case res.skipped:
			o.setStat(run, func(s *domain.SyncStats) { s.Skipped++ })

		case res.failure != nil:
			o.recordFailure(run, *res.failure)

		case res.ref.Kind == domain.ChangeDelete:
			docID := domain.DocumentID(source.ID, res.ref.ExternalID)
			if err := o.indexer.EvictDocument(ctx, docID); err != nil {
				o.recordFailure(run, domain.ItemFailure{
					ExternalID: res.ref.ExternalID, Stage: "evict", Reason: err.Error(),
				})
				continue
			}
			o.setStat(run, func(s *domain.SyncStats) { s.Deleted++ })
			success(res.ref.Timestamp)

		case res.unchanged:
			o.setStat(run, func(s *domain.SyncStats) { s.Unchanged++ })
			success(res.ref.Timestamp)

		default:
			if o.indexItem(ctx, run, res) {
				success(res.ref.Timestamp)
			}
		}
	}

	cancelled := ctx.Err() != nil

	if run.Mode == domain.SyncModeFull && !cancelled {
		o.reconcileDeletions(ctx, source, run, observed)
	}

	o.finish(ctx, source, run, state, caps, proposedCursor, maxSuccess, cancelled)
}

// indexItem runs the embed and index stages for one document. Returns
// true when the document made it into the index (or was deliberately
// left at its previous version by a budget deferral counts as false).
func (o *SyncOrchestrator) indexItem(ctx context.Context, run *domain.SyncRun, res itemResult) bool {
	outcome, err := o.embedder.EmbedChunks(ctx, res.chunks)
	if err != nil {
		o.recordFailure(run, domain.ItemFailure{
			ExternalID: res.ref.ExternalID, Stage: "embed", Reason: err.Error(),
		})
		return false
	}

	o.setStat(run, func(s *domain.SyncStats) {
		s.ChunksEmbedded += outcome.Embedded
		s.CacheHits += outcome.CacheHits
	})

	if len(outcome.Deferred) > 0 {
		// Document granularity: a partially embedded version never
		// reaches the index. Vectors already paid for sit in the cache
		// for the next run.
		o.setStat(run, func(s *domain.SyncStats) { s.Deferred++ })
		logger.Debug("deferring %s: %d chunks past the budget", res.ref.ExternalID, len(outcome.Deferred))
		return false
	}
	if len(outcome.Failed) > 0 {
		o.recordFailure(run, domain.ItemFailure{
			ExternalID: res.ref.ExternalID,
			Stage:      "embed",
			Reason:     fmt.Sprintf("%d chunks rejected: %v", len(outcome.Failed), outcome.Failed[0].Err),
		})
		return false
	}

	if err := o.indexer.IndexDocument(ctx, res.doc, outcome.Chunks); err != nil {
		o.recordFailure(run, domain.ItemFailure{
			ExternalID: res.ref.ExternalID, Stage: "index", Reason: err.Error(),
		})
		return false
	}

	o.setStat(run, func(s *domain.SyncStats) { s.Indexed++ })
	return true
}

// processItem is the worker stage: fetch with retry, normalise, decide
// the version, chunk. Channels deliver the result to the consumer.
func (o *SyncOrchestrator) processItem(
	ctx context.Context,
	source *domain.Source,
	connector driven.Connector,
	ref domain.ChangeRef,
) itemResult {
	if err := ctx.Err(); err != nil {
		return itemResult{ref: ref, failure: &domain.ItemFailure{
			ExternalID: ref.ExternalID, Stage: "fetch", Reason: err.Error(),
		}}
	}

	if ref.Kind == domain.ChangeDelete {
		return itemResult{ref: ref}
	}

	var item *domain.RawItem
	err := retryWithPolicy(ctx, o.retry, "fetch "+ref.ExternalID, func(ctx context.Context) error {
		var ferr error
		item, ferr = connector.Fetch(ctx, ref.ExternalID)
		return ferr
	})
	if err != nil {
		return itemResult{ref: ref, failure: &domain.ItemFailure{
			ExternalID: ref.ExternalID, Stage: "fetch", Reason: err.Error(),
		}}
	}

	normaliser, err := o.registry.Resolve(item.MIMEType, source.Type)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			logger.Debug("skipping %s: no normaliser for %s", ref.ExternalID, item.MIMEType)
			return itemResult{ref: ref, skipped: true}
		}
		return itemResult{ref: ref, failure: &domain.ItemFailure{
			ExternalID: ref.ExternalID, Stage: "normalise", Reason: err.Error(),
		}}
	}

	result, err := normaliser.Normalise(ctx, item)
	if err != nil {
		return itemResult{ref: ref, failure: &domain.ItemFailure{
			ExternalID: ref.ExternalID, Stage: "normalise", Reason: err.Error(),
		}}
	}

	doc := result.Document
	if doc.Category == "" {
		doc.Category = ref.Category
	}
	if doc.Language != "" && !source.AcceptsLanguage(doc.Language) {
		logger.Debug("skipping %s: language %s filtered", ref.ExternalID, doc.Language)
		return itemResult{ref: ref, skipped: true}
	}

	existing, err := o.docStore.GetDocument(ctx, doc.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return itemResult{ref: ref, failure: &domain.ItemFailure{
			ExternalID: ref.ExternalID, Stage: "normalise", Reason: err.Error(),
		}}
	}

	switch {
	case existing == nil:
		doc.Version = 1
	case existing.ContentHash == doc.ContentHash:
		doc.CreatedAt = existing.CreatedAt
		doc.Version = existing.Version
		doc.IndexedVersion = existing.IndexedVersion
		if existing.IndexedVersion == existing.Version {
			// Content-addressed skip: same text, already live.
			return itemResult{ref: ref, doc: &doc, unchanged: true}
		}
		// Same text but an earlier run never finished indexing it;
		// redo embed+index. The cache makes the embeds free.
	default:
		doc.CreatedAt = existing.CreatedAt
		doc.Version = existing.Version + 1
		doc.IndexedVersion = existing.IndexedVersion
	}

	// Persist the version decision before any embedding happens so a
	// version number is never reused for different text.
	if err := o.docStore.SaveDocument(ctx, &doc); err != nil {
		return itemResult{ref: ref, failure: &domain.ItemFailure{
			ExternalID: ref.ExternalID, Stage: "normalise", Reason: err.Error(),
		}}
	}

	chunks, err := o.pipeline.Process(ctx, &doc)
	if err != nil {
		return itemResult{ref: ref, failure: &domain.ItemFailure{
			ExternalID: ref.ExternalID, Stage: "chunk", Reason: err.Error(),
		}}
	}

	return itemResult{ref: ref, doc: &doc, chunks: chunks}
}

// reconcileDeletions evicts documents a full pass did not observe.
func (o *SyncOrchestrator) reconcileDeletions(
	ctx context.Context,
	source *domain.Source,
	run *domain.SyncRun,
	observed map[string]struct{},
) {
	stored, err := o.docStore.ListDocumentIDs(ctx, source.ID)
	if err != nil {
		logger.Warn("listing documents for reconciliation: %v", err)
		return
	}

	for _, id := range stored {
		if _, ok := observed[id]; ok {
			continue
		}
		if err := o.indexer.EvictDocument(ctx, id); err != nil {
			o.recordFailure(run, domain.ItemFailure{
				ExternalID: id, Stage: "evict", Reason: err.Error(),
			})
			continue
		}
		o.setStat(run, func(s *domain.SyncStats) { s.Deleted++ })
		logger.Debug("evicted %s: not observed by full sync", id)
	}
}

// finish advances the cursor and closes out the run. The cursor only
// ever moves at a terminal state: to the connector's proposed cursor
// after a clean pass, or to the latest successfully processed change
// timestamp when items failed or were deferred — token cursors cannot
// express a partial position and stay put instead.
func (o *SyncOrchestrator) finish(
	ctx context.Context,
	source *domain.Source,
	run *domain.SyncRun,
	state domain.SyncState,
	caps driven.ConnectorCapabilities,
	proposedCursor string,
	maxSuccess time.Time,
	cancelled bool,
) {
	clean := !cancelled && run.Stats.Failed == 0 && run.Stats.Deferred == 0

	cursor := state.Cursor
	switch {
	case clean && proposedCursor != "":
		cursor = proposedCursor
	case clean && !maxSuccess.IsZero():
		cursor = domain.FormatCursor(maxSuccess)
	case !clean && caps.Cursor == driven.CursorTimestamp && !maxSuccess.IsZero():
		cursor = domain.FormatCursor(maxSuccess)
	}

	now := time.Now().UTC()
	state.SourceID = source.ID
	state.Cursor = cursor
	state.LastSync = now
	if run.Mode == domain.SyncModeFull && !cancelled {
		state.LastFull = now
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.stateStore.Save(saveCtx, state); err != nil {
		o.fail(run, fmt.Errorf("save sync state: %w", err))
		return
	}

	if cancelled {
		o.fail(run, domain.ErrSyncCancelled)
		return
	}
	o.mu.Lock()
	run.Status = domain.RunStatusSucceeded
	o.mu.Unlock()
}

func (o *SyncOrchestrator) fail(run *domain.SyncRun, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run.Status = domain.RunStatusFailed
	run.Error = err.Error()
}

func (o *SyncOrchestrator) setStat(run *domain.SyncRun, mutate func(*domain.SyncStats)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	mutate(&run.Stats)
}

func (o *SyncOrchestrator) recordFailure(run *domain.SyncRun, failure domain.ItemFailure) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run.Stats.Failed++
	run.Failures = append(run.Failures, failure)
	logger.Debug("item %s failed at %s: %s", failure.ExternalID, failure.Stage, failure.Reason)
}
