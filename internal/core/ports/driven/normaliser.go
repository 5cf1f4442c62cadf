package driven

import (
	"context"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// NormaliseResult is the output of one normalisation.
type NormaliseResult struct {
	// Document carries the normalised text and extracted metadata.
	// ID, ContentHash and timestamps are set; Version is assigned later
	// by the orchestrator once the stored document is known.
	Document domain.Document
}

// Normaliser converts one raw payload format into a canonical document.
// Adding a format means adding an implementation, never touching the
// dispatch logic.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// SupportedSourceTypes returns source types for specialised
	// handling, or nil for all sources.
	SupportedSourceTypes() []domain.SourceType

	// Priority orders candidates when several support the same MIME
	// type. Higher wins; source-specific normalisers sit above generic
	// ones, the plaintext fallback at the bottom.
	Priority() int

	// Normalise converts a raw item. Returns domain.ErrCorruptPayload
	// when the payload cannot be parsed as its declared format.
	Normalise(ctx context.Context, item *domain.RawItem) (*NormaliseResult, error)
}

// NormaliserRegistry selects the normaliser for a content type.
type NormaliserRegistry interface {
	// Register adds a normaliser to the registry.
	Register(n Normaliser)

	// Resolve picks the best normaliser for a MIME type and source
	// type. Returns domain.ErrUnsupportedFormat when nothing matches.
	Resolve(mimeType string, sourceType domain.SourceType) (Normaliser, error)
}
