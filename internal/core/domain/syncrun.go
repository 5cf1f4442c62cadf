package domain

import "time"

// SyncMode selects how much of a source one run re-processes.
type SyncMode string

// Sync modes.
const (
	// SyncModeIncremental processes only items changed since the cursor.
	SyncModeIncremental SyncMode = "incremental"

	// SyncModeFull re-fetches the entire corpus and reconciles deletions:
	// documents not observed in the pass are evicted.
	SyncModeFull SyncMode = "full"
)

// IsValid reports whether the sync mode is known.
func (m SyncMode) IsValid() bool {
	return m == SyncModeIncremental || m == SyncModeFull
}

// String returns the string representation.
func (m SyncMode) String() string {
	return string(m)
}

// RunStatus is the lifecycle state of a sync run.
type RunStatus string

// Run statuses.
const (
	// RunStatusRunning means the run is in progress.
	RunStatusRunning RunStatus = "running"

	// RunStatusSucceeded means the run reached its end. Item-level
	// failures and budget deferrals do not demote a run from succeeded.
	RunStatusSucceeded RunStatus = "succeeded"

	// RunStatusFailed means the run aborted: lock contention aside,
	// only connector initialisation or listing failures cause this.
	RunStatusFailed RunStatus = "failed"
)

// SyncStats counts pipeline outcomes for one run.
type SyncStats struct {
	// Listed is the number of change refs the connector reported.
	Listed int

	// Fetched is the number of payloads retrieved.
	Fetched int

	// Unchanged is the number of items whose normalised content hash
	// matched the stored version, skipping the rest of the pipeline.
	Unchanged int

	// Skipped is the number of items with no matching normaliser.
	Skipped int

	// ChunksEmbedded is the number of chunks sent to the embedding
	// backend (cache hits excluded).
	ChunksEmbedded int

	// CacheHits is the number of chunk vectors served from the cache.
	CacheHits int

	// Indexed is the number of documents fully upserted into the index.
	Indexed int

	// Deferred is the number of documents postponed to the next run
	// because the embedding budget ran out.
	Deferred int

	// Deleted is the number of documents evicted.
	Deleted int

	// Failed is the number of items that exhausted their retries.
	Failed int
}

// ItemFailure records one item that failed after retries were exhausted.
type ItemFailure struct {
	// ExternalID identifies the failed item.
	ExternalID string

	// Stage names the pipeline stage that failed (fetch, normalise,
	// embed, index).
	Stage string

	// Reason is the final error message.
	Reason string
}

// SyncRun is the record of one ingestion pass over a source.
type SyncRun struct {
	// ID is a unique run identifier.
	ID string

	// SourceID identifies the synced source.
	SourceID string

	// Mode is full or incremental.
	Mode SyncMode

	// Status is the lifecycle state.
	Status RunStatus

	// StartedAt and EndedAt bound the run. EndedAt is zero while running.
	StartedAt time.Time
	EndedAt   time.Time

	// Stats counts pipeline outcomes.
	Stats SyncStats

	// Failures lists items that exhausted retries.
	Failures []ItemFailure

	// Error is the abort reason for failed runs.
	Error string
}

// Duration returns the run's elapsed time, up to now for running runs.
func (r *SyncRun) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	if r.EndedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Terminal reports whether the run reached a terminal state.
func (r *SyncRun) Terminal() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusFailed
}

// SyncStatus is the operator-facing health view for one source.
type SyncStatus struct {
	// SourceID and SourceName identify the source.
	SourceID   string
	SourceName string

	// Running reports whether a sync holds the source's lock right now.
	Running bool

	// Cursor is the stored incremental cursor.
	Cursor string

	// LastSync and LastFull are the completion times of the most recent
	// runs of each kind.
	LastSync time.Time
	LastFull time.Time

	// LastRun is the most recent terminal run, if any.
	LastRun *SyncRun
}
