package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"the search query to find documents"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Sources    []string `json:"sources,omitempty" jsonschema:"restrict results to these source ids"`
	Languages  []string `json:"languages,omitempty" jsonschema:"restrict results to these language codes"`
	Categories []string `json:"categories,omitempty" jsonschema:"restrict results to these content categories"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`

	// Degraded is set when one retrieval signal was unavailable and
	// results come from the remaining one.
	Degraded bool `json:"degraded,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	URI        string  `json:"uri"`
	Snippet    string  `json:"snippet,omitempty"`
	Score      float64 `json:"score"`
}

// SyncStatusInput is the input schema for the sync_status tool.
type SyncStatusInput struct {
	SourceID string `json:"source_id,omitempty" jsonschema:"report only this source (all sources when empty)"`
}

// SyncStatusOutput is the output schema for the sync_status tool.
type SyncStatusOutput struct {
	Sources []SourceStatusOutput `json:"sources"`
}

// SourceStatusOutput is the sync health of one source.
type SourceStatusOutput struct {
	SourceID      string `json:"source_id"`
	Name          string `json:"name,omitempty"`
	Running       bool   `json:"running"`
	LastSync      string `json:"last_sync,omitempty"`
	LastFull      string `json:"last_full,omitempty"`
	LastRunStatus string `json:"last_run_status,omitempty"`
	LastRunMode   string `json:"last_run_mode,omitempty"`
	Indexed       int    `json:"indexed,omitempty"`
	Failed        int    `json:"failed,omitempty"`
	Error         string `json:"error,omitempty"`
}

// FeedbackInput is the input schema for the record_feedback tool.
type FeedbackInput struct {
	ChunkID string `json:"chunk_id" jsonschema:"the chunk id from a search result"`
	Signal  string `json:"signal" jsonschema:"one of useful, irrelevant or click"`
	Query   string `json:"query,omitempty" jsonschema:"the query that produced the result"`
}

// FeedbackOutput is the output schema for the record_feedback tool.
type FeedbackOutput struct {
	FeedbackID string `json:"feedback_id"`
	Recorded   bool   `json:"recorded"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid semantic and keyword search across all indexed documents",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Sync health per source: running state, last sync times and failure counts",
	}, s.handleSyncStatus)

	if s.ports.Feedback != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "record_feedback",
			Description: "Record a relevance judgement on a search result",
		}, s.handleFeedback)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		Limit:      input.Limit,
		Sources:    input.Sources,
		Languages:  input.Languages,
		Categories: input.Categories,
	}

	resp, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:  make([]SearchResultOutput, len(resp.Results)),
		Count:    len(resp.Results),
		Degraded: resp.Degraded,
	}

	for i := range resp.Results {
		r := &resp.Results[i]
		output.Results[i] = SearchResultOutput{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Title:      r.Title,
			URI:        r.URI,
			Snippet:    r.Snippet,
			Score:      r.Score,
		}
	}

	return nil, output, nil
}

// handleSyncStatus handles the sync_status tool invocation.
func (s *Server) handleSyncStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncStatusInput,
) (*mcp.CallToolResult, SyncStatusOutput, error) {
	var statuses []domain.SyncStatus

	if input.SourceID != "" {
		status, err := s.ports.Sync.Status(ctx, input.SourceID)
		if err != nil {
			return nil, SyncStatusOutput{}, err
		}
		statuses = []domain.SyncStatus{*status}
	} else {
		all, err := s.ports.Sync.StatusAll(ctx)
		if err != nil {
			return nil, SyncStatusOutput{}, err
		}
		statuses = all
	}

	output := SyncStatusOutput{Sources: make([]SourceStatusOutput, len(statuses))}
	for i := range statuses {
		output.Sources[i] = sourceStatus(&statuses[i])
	}

	return nil, output, nil
}

// handleFeedback handles the record_feedback tool invocation.
func (s *Server) handleFeedback(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FeedbackInput,
) (*mcp.CallToolResult, FeedbackOutput, error) {
	fb := domain.Feedback{
		ChunkID: input.ChunkID,
		Query:   input.Query,
		Signal:  domain.FeedbackSignal(strings.ToLower(input.Signal)),
	}

	recorded, err := s.ports.Feedback.Record(ctx, fb)
	if err != nil {
		return nil, FeedbackOutput{}, err
	}

	return nil, FeedbackOutput{FeedbackID: recorded.ID, Recorded: true}, nil
}

// sourceStatus flattens one sync status for tool and resource output.
func sourceStatus(status *domain.SyncStatus) SourceStatusOutput {
	out := SourceStatusOutput{
		SourceID: status.SourceID,
		Name:     status.SourceName,
		Running:  status.Running,
	}

	if !status.LastSync.IsZero() {
		out.LastSync = status.LastSync.UTC().Format(time.RFC3339)
	}
	if !status.LastFull.IsZero() {
		out.LastFull = status.LastFull.UTC().Format(time.RFC3339)
	}
	if run := status.LastRun; run != nil {
		out.LastRunStatus = string(run.Status)
		out.LastRunMode = string(run.Mode)
		out.Indexed = run.Stats.Indexed
		out.Failed = run.Stats.Failed
		out.Error = run.Error
	}

	return out
}
