package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/logger"
)

// dayFormat keys the budget ledger.
const dayFormat = "2006-01-02"

// ChunkFailure records one chunk the backend permanently rejected.
type ChunkFailure struct {
	ChunkID string
	Err     error
}

// EmbedOutcome is the result of embedding one document's chunks.
type EmbedOutcome struct {
	// Chunks hold their vectors and are ready to index, ordered by
	// ordinal.
	Chunks []domain.Chunk

	// Deferred are chunks postponed because the daily budget ran out.
	Deferred []domain.Chunk

	// Failed are chunks the backend permanently rejected.
	Failed []ChunkFailure

	// CacheHits and Embedded split where the vectors came from.
	CacheHits int
	Embedded  int
}

// Embedder generates chunk vectors under the shared rate limit and the
// daily cost budget. The cache is consulted first: a chunk id that was
// embedded before never reaches the backend again, which is the
// pipeline's primary cost control.
type Embedder struct {
	provider driven.EmbeddingProvider
	cache    driven.EmbeddingCache
	budget   driven.BudgetStore
	limiter  *rate.Limiter
	batch    int
	retry    domain.RetryPolicy

	// now is replaceable for tests.
	now func() time.Time
}

// NewEmbedder creates an embedder. The limiter is shared across every
// concurrent sync because backend and budget are shared resources.
func NewEmbedder(
	provider driven.EmbeddingProvider,
	cache driven.EmbeddingCache,
	budget driven.BudgetStore,
	settings domain.EmbeddingSettings,
	retry domain.RetryPolicy,
) *Embedder {
	batchSize := settings.BatchSize
	if batchSize <= 0 {
		batchSize = domain.DefaultSettings().Embedding.BatchSize
	}
	rps := settings.RequestsPerSecond
	if rps <= 0 {
		rps = domain.DefaultSettings().Embedding.RequestsPerSecond
	}
	burst := settings.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Embedder{
		provider: provider,
		cache:    cache,
		budget:   budget,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		batch:    batchSize,
		retry:    retry.Normalise(),
		now:      time.Now,
	}
}

// EmbedChunks fills vectors for the given chunks. Cache hits skip the
// backend; misses are batched. When the daily budget cannot cover the
// next batch, the remaining chunks come back in Deferred and the caller
// leaves the document for the next scheduled run.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []domain.Chunk) (*EmbedOutcome, error) {
	out := &EmbedOutcome{}
	if len(chunks) == 0 {
		return out, nil
	}
	if e.provider == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
	}

	cached, err := e.cache.Get(ctx, e.provider.ModelName(), ids)
	if err != nil {
		return nil, fmt.Errorf("reading embedding cache: %w", err)
	}

	var misses []domain.Chunk
	for i := range chunks {
		if vec, ok := cached[chunks[i].ID]; ok {
			chunks[i].Embedding = vec
			out.Chunks = append(out.Chunks, chunks[i])
			out.CacheHits++
			continue
		}
		misses = append(misses, chunks[i])
	}

	day := e.now().UTC().Format(dayFormat)

	for start := 0; start < len(misses); start += e.batch {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		end := start + e.batch
		if end > len(misses) {
			end = len(misses)
		}
		batch := misses[start:end]

		estimate := tokenEstimate(batch)
		remaining, err := e.budget.Remaining(ctx, day)
		if err != nil {
			return out, fmt.Errorf("checking embedding budget: %w", err)
		}
		// Remaining is negative for an uncapped day, zero when spent.
		if remaining >= 0 && remaining < estimate {
			// Deferred, never dropped: the next run finds the same
			// chunk ids and picks up where the budget cut us off.
			out.Deferred = append(out.Deferred, misses[start:]...)
			logger.Warn("embedding budget exhausted for %s (%d tokens left, batch needs %d); deferring %d chunks",
				day, remaining, estimate, len(out.Deferred))
			break
		}

		vecs, failures, err := e.embedBatch(ctx, batch)
		if err != nil {
			return out, err
		}
		out.Failed = append(out.Failed, failures...)

		var spent int64
		for i := range batch {
			if vecs[i] == nil {
				continue
			}
			batch[i].Embedding = vecs[i]
			spent += int64(batch[i].TokenCount)
			if err := e.cache.Put(ctx, e.provider.ModelName(), batch[i].ID, vecs[i]); err != nil {
				logger.Warn("caching embedding for %s: %v", batch[i].ID, err)
			}
			out.Chunks = append(out.Chunks, batch[i])
			out.Embedded++
		}
		if spent > 0 {
			if err := e.budget.Spend(ctx, day, spent); err != nil {
				return out, fmt.Errorf("recording embedding spend: %w", err)
			}
		}
	}

	sort.Slice(out.Chunks, func(i, j int) bool { return out.Chunks[i].Ordinal < out.Chunks[j].Ordinal })
	return out, nil
}

// embedBatch calls the backend for one batch. Transient failures retry
// per policy. A permanent batch failure falls back to embedding chunks
// one at a time so a single oversized chunk fails alone instead of
// taking its whole batch down. The returned slice aligns with the
// batch; nil entries correspond to recorded failures.
func (e *Embedder) embedBatch(ctx context.Context, batch []domain.Chunk) ([][]float32, []ChunkFailure, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Content
	}

	var vecs [][]float32
	err := retryWithPolicy(ctx, e.retry, "embed batch", func(ctx context.Context) error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		v, err := e.provider.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(v) != len(texts) {
			return &driven.ProviderError{
				Message: fmt.Sprintf("got %d vectors for %d texts", len(v), len(texts)),
			}
		}
		vecs = v
		return nil
	})
	if err == nil {
		return vecs, nil, nil
	}
	if retryable(err) {
		// Transient and retries exhausted: the caller records the
		// document as failed and a later run tries again.
		return nil, nil, err
	}

	logger.Debug("batch embedding rejected, isolating chunks: %v", err)

	vecs = make([][]float32, len(batch))
	var failures []ChunkFailure
	for i := range batch {
		var vec []float32
		serr := retryWithPolicy(ctx, e.retry, "embed chunk", func(ctx context.Context) error {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
			v, err := e.provider.Embed(ctx, batch[i].Content)
			if err != nil {
				return err
			}
			vec = v
			return nil
		})
		switch {
		case serr == nil:
			vecs[i] = vec
		case retryable(serr):
			return nil, nil, serr
		default:
			failures = append(failures, ChunkFailure{ChunkID: batch[i].ID, Err: serr})
		}
	}
	return vecs, failures, nil
}

// tokenEstimate sums the whitespace-word counts of a batch, the same
// unit the budget ledger is kept in.
func tokenEstimate(chunks []domain.Chunk) int64 {
	var total int64
	for i := range chunks {
		n := chunks[i].TokenCount
		if n == 0 {
			n = domain.CountTokens(chunks[i].Content)
		}
		total += int64(n)
	}
	return total
}
