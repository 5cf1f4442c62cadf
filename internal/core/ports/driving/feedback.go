package driving

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// FeedbackRecorder captures relevance signals on search results.
type FeedbackRecorder interface {
	// Record validates and persists one signal.
	Record(ctx context.Context, fb domain.Feedback) (*domain.Feedback, error)

	// List returns the newest recorded signals, at most limit.
	List(ctx context.Context, limit int) ([]domain.Feedback, error)
}
