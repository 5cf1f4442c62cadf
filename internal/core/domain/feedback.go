package domain

import (
	"strings"
	"time"
)

// FeedbackSignal classifies a relevance judgement on a search result.
type FeedbackSignal string

// Feedback signals.
const (
	// FeedbackUseful marks a result as relevant to the query.
	FeedbackUseful FeedbackSignal = "useful"

	// FeedbackIrrelevant marks a result as unrelated to the query.
	FeedbackIrrelevant FeedbackSignal = "irrelevant"

	// FeedbackClick records that a result was opened.
	FeedbackClick FeedbackSignal = "click"
)

// IsValid reports whether the signal is known.
func (s FeedbackSignal) IsValid() bool {
	switch s {
	case FeedbackUseful, FeedbackIrrelevant, FeedbackClick:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s FeedbackSignal) String() string {
	return string(s)
}

// Feedback is one recorded relevance signal. The recorder only appends
// these; a retraining trigger elsewhere consumes them.
type Feedback struct {
	// ID is a unique record identifier.
	ID string

	// ChunkID is the result the signal applies to.
	ChunkID string

	// DocumentID is the owning document, denormalised for the consumer.
	DocumentID string

	// Query is the search text that produced the result.
	Query string

	// Signal is the judgement.
	Signal FeedbackSignal

	// RecordedAt is when the signal was captured.
	RecordedAt time.Time
}

// Validate checks the feedback for required fields.
func (f *Feedback) Validate() error {
	if f == nil {
		return ErrInvalidInput
	}
	if strings.TrimSpace(f.ChunkID) == "" {
		return ErrInvalidInput
	}
	if !f.Signal.IsValid() {
		return ErrInvalidInput
	}
	return nil
}
