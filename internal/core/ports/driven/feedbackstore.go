package driven

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// FeedbackStore persists relevance signals for the external retraining
// trigger to consume.
type FeedbackStore interface {
	// Save appends one feedback record.
	Save(ctx context.Context, fb *domain.Feedback) error

	// List returns the newest records, at most limit.
	List(ctx context.Context, limit int) ([]domain.Feedback, error)
}
