package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown connector or normaliser type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Sync Errors.

	// ErrSyncInProgress indicates a sync is already running for the source.
	// A duplicate trigger is rejected immediately, never queued.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrSyncCancelled indicates a sync run was cancelled cooperatively.
	ErrSyncCancelled = errors.New("sync cancelled")

	// ErrConnectorUnavailable indicates the connector could not reach its
	// upstream system. Retried with backoff; a run started on a dead
	// connector aborts immediately.
	ErrConnectorUnavailable = errors.New("connector unavailable")

	// ErrConnectorValidation indicates connector validation failed.
	// The source is misconfigured or credentials are invalid.
	ErrConnectorValidation = errors.New("connector validation failed")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// ErrRateLimited indicates the upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Normalisation Errors.

	// ErrUnsupportedFormat indicates no normaliser handles the item's
	// content type. The item is skipped; the run continues.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptPayload indicates a payload could not be parsed by its
	// declared format. Recorded as an item failure; the run continues.
	ErrCorruptPayload = errors.New("corrupt payload")

	// Embedding and Index Errors.

	// ErrBudgetExhausted indicates the daily embedding budget is spent.
	// Remaining work is deferred to the next scheduled run, not dropped.
	ErrBudgetExhausted = errors.New("embedding budget exhausted")

	// ErrEmbeddingUnavailable indicates the embedding backend is not
	// configured. Vector/semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexWrite indicates the vector or lexical index rejected a
	// write after retries. Eviction of the prior version is skipped so
	// the document stays queryable.
	ErrIndexWrite = errors.New("index write failed")

	// ErrSearchUnavailable indicates the lexical index is not configured.
	ErrSearchUnavailable = errors.New("lexical index unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)
