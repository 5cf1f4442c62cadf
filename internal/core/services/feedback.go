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
)

// Ensure FeedbackService implements the interface.
var _ driving.FeedbackRecorder = (*FeedbackService)(nil)

// defaultFeedbackLimit caps List when the caller does not.
const defaultFeedbackLimit = 100

// FeedbackService records relevance signals against indexed chunks. It
// only appends; nothing in the pipeline reads the signals back.
type FeedbackService struct {
	feedback driven.FeedbackStore
	docs     driven.DocumentStore
}

// NewFeedbackService creates a feedback recorder.
func NewFeedbackService(feedback driven.FeedbackStore, docs driven.DocumentStore) *FeedbackService {
	return &FeedbackService{feedback: feedback, docs: docs}
}

// Record validates and persists one signal. The chunk must exist so
// signals always point at retrievable content.
func (f *FeedbackService) Record(ctx context.Context, fb domain.Feedback) (*domain.Feedback, error) {
	if err := fb.Validate(); err != nil {
		return nil, err
	}

	chunk, err := f.docs.GetChunk(ctx, fb.ChunkID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("chunk %s: %w", fb.ChunkID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get chunk: %w", err)
	}

	fb.ID = uuid.New().String()
	fb.DocumentID = chunk.DocumentID
	fb.RecordedAt = time.Now().UTC()

	if err := f.feedback.Save(ctx, &fb); err != nil {
		return nil, fmt.Errorf("save feedback: %w", err)
	}
	return &fb, nil
}

// List returns the newest signals.
func (f *FeedbackService) List(ctx context.Context, limit int) ([]domain.Feedback, error) {
	if limit <= 0 {
		limit = defaultFeedbackLimit
	}
	return f.feedback.List(ctx, limit)
}
