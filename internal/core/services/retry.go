package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/logger"
)

// retryWithPolicy runs fn up to policy.MaxAttempts times, sleeping the
// policy's backoff between attempts. Permanent errors and context
// cancellation stop immediately; everything else is retried. Returns
// the last error on exhaustion.
func retryWithPolicy(ctx context.Context, policy domain.RetryPolicy, op string, fn func(context.Context) error) error {
	policy = policy.Normalise()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		logger.Debug("%s failed (attempt %d/%d), retrying in %s: %v",
			op, attempt, policy.MaxAttempts, delay.Round(time.Millisecond), lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// retryable classifies an error as worth another attempt. Domain
// sentinels describing the payload or configuration are permanent;
// provider errors expose their own transience; anything unrecognised
// is assumed transient.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrCorruptPayload),
		errors.Is(err, domain.ErrBudgetExhausted),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConnectorClosed):
		return false
	}

	var provErr *driven.ProviderError
	if errors.As(err, &provErr) {
		return provErr.Transient()
	}

	return true
}
