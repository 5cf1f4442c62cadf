// Package mcp provides an MCP (Model Context Protocol) server adapter
// for korpus. It lets AI assistants search the indexed corpus, inspect
// sync health and record relevance feedback.
package mcp

import "errors"

// Sentinel errors for required ports left unset.
var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrMissingSyncOrchestrator is returned when the sync orchestrator is not provided.
	ErrMissingSyncOrchestrator = errors.New("mcp: sync orchestrator is required")
)
