package mcp

import (
	"github.com/custodia-labs/korpus/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search answers hybrid queries.
	Search driving.SearchService

	// Sync reports per-source sync health.
	Sync driving.SyncOrchestrator

	// Source lists configured sources.
	Source driving.SourceService

	// Feedback records relevance judgements.
	Feedback driving.FeedbackRecorder
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Sync == nil {
		return ErrMissingSyncOrchestrator
	}
	// Source and Feedback are optional: without them the sources
	// resource serves an empty list and record_feedback is not
	// registered.
	return nil
}
