package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mockSearch := &mockSearchService{
			resp: &domain.SearchResponse{
				Results: []domain.SearchResult{
					{
						ChunkID:    "chunk-1",
						DocumentID: "doc-1",
						Title:      "Release notes",
						URI:        "wiki://releases",
						Snippet:    "the release went out on time",
						Score:      0.95,
					},
				},
			},
		}

		ports := &Ports{Search: mockSearch, Sync: &mockSyncOrchestrator{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := SearchInput{Query: "release", Limit: 10}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "chunk-1", output.Results[0].ChunkID)
		assert.Equal(t, "doc-1", output.Results[0].DocumentID)
		assert.Equal(t, "Release notes", output.Results[0].Title)
		assert.Equal(t, "wiki://releases", output.Results[0].URI)
		assert.Equal(t, "the release went out on time", output.Results[0].Snippet)
		assert.Equal(t, 0.95, output.Results[0].Score)
		assert.False(t, output.Degraded)
	})

	t.Run("passes filters through", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		ports := &Ports{Search: mockSearch, Sync: &mockSyncOrchestrator{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := SearchInput{
			Query:      "release",
			Limit:      5,
			Sources:    []string{"src-1"},
			Languages:  []string{"en"},
			Categories: []string{"documentation"},
		}
		_, _, err = server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 5, mockSearch.lastOpts.Limit)
		assert.Equal(t, []string{"src-1"}, mockSearch.lastOpts.Sources)
		assert.Equal(t, []string{"en"}, mockSearch.lastOpts.Languages)
		assert.Equal(t, []string{"documentation"}, mockSearch.lastOpts.Categories)
	})

	t.Run("reports degraded retrieval", func(t *testing.T) {
		mockSearch := &mockSearchService{
			resp: &domain.SearchResponse{Degraded: true},
		}
		ports := &Ports{Search: mockSearch, Sync: &mockSyncOrchestrator{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "release"})

		require.NoError(t, err)
		assert.True(t, output.Degraded)
		assert.Equal(t, 0, output.Count)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockSearch := &mockSearchService{
			err: errors.New("search failed"),
		}

		ports := &Ports{Search: mockSearch, Sync: &mockSyncOrchestrator{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "release"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleSyncStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("reports all sources", func(t *testing.T) {
		lastSync := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
		mockSync := &mockSyncOrchestrator{
			statuses: []domain.SyncStatus{
				{
					SourceID:   "src-1",
					SourceName: "team wiki",
					Running:    false,
					LastSync:   lastSync,
					LastRun: &domain.SyncRun{
						Status: domain.RunStatusSucceeded,
						Mode:   domain.SyncModeIncremental,
						Stats:  domain.SyncStats{Indexed: 8, Failed: 1},
					},
				},
				{SourceID: "src-2", Running: true},
			},
		}

		ports := &Ports{Search: &mockSearchService{}, Sync: mockSync}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleSyncStatus(ctx, nil, SyncStatusInput{})

		require.NoError(t, err)
		require.Len(t, output.Sources, 2)
		assert.Equal(t, "src-1", output.Sources[0].SourceID)
		assert.Equal(t, "team wiki", output.Sources[0].Name)
		assert.Equal(t, "2026-03-14T09:30:00Z", output.Sources[0].LastSync)
		assert.Empty(t, output.Sources[0].LastFull)
		assert.Equal(t, "succeeded", output.Sources[0].LastRunStatus)
		assert.Equal(t, "incremental", output.Sources[0].LastRunMode)
		assert.Equal(t, 8, output.Sources[0].Indexed)
		assert.Equal(t, 1, output.Sources[0].Failed)
		assert.True(t, output.Sources[1].Running)
	})

	t.Run("reports a single source", func(t *testing.T) {
		mockSync := &mockSyncOrchestrator{
			status: &domain.SyncStatus{SourceID: "src-1", Running: true},
		}

		ports := &Ports{Search: &mockSearchService{}, Sync: mockSync}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleSyncStatus(ctx, nil, SyncStatusInput{SourceID: "src-1"})

		require.NoError(t, err)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "src-1", output.Sources[0].SourceID)
		assert.True(t, output.Sources[0].Running)
	})

	t.Run("returns error on status failure", func(t *testing.T) {
		mockSync := &mockSyncOrchestrator{err: errors.New("state store unavailable")}

		ports := &Ports{Search: &mockSearchService{}, Sync: mockSync}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleSyncStatus(ctx, nil, SyncStatusInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "state store unavailable")
	})
}

func TestServer_handleFeedback(t *testing.T) {
	ctx := context.Background()

	t.Run("records a signal", func(t *testing.T) {
		mockFeedback := &mockFeedbackRecorder{}
		ports := &Ports{
			Search:   &mockSearchService{},
			Sync:     &mockSyncOrchestrator{},
			Feedback: mockFeedback,
		}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := FeedbackInput{ChunkID: "chunk-1", Signal: "USEFUL", Query: "release"}
		_, output, err := server.handleFeedback(ctx, nil, input)

		require.NoError(t, err)
		assert.True(t, output.Recorded)
		assert.Equal(t, "fb-1", output.FeedbackID)
		require.NotNil(t, mockFeedback.recorded)
		assert.Equal(t, domain.FeedbackUseful, mockFeedback.recorded.Signal)
		assert.Equal(t, "release", mockFeedback.recorded.Query)
	})

	t.Run("returns error for unknown chunk", func(t *testing.T) {
		mockFeedback := &mockFeedbackRecorder{err: domain.ErrNotFound}
		ports := &Ports{
			Search:   &mockSearchService{},
			Sync:     &mockSyncOrchestrator{},
			Feedback: mockFeedback,
		}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := FeedbackInput{ChunkID: "chunk-gone", Signal: "useful"}
		_, _, err = server.handleFeedback(ctx, nil, input)

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
