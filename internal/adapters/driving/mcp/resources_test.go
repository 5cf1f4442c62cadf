package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleSourcesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns configured sources as JSON", func(t *testing.T) {
		mockSource := &mockSourceService{
			sources: []domain.Source{
				{
					ID:        "src-1",
					Name:      "team wiki",
					Type:      domain.SourceTypeWiki,
					Enabled:   true,
					Languages: []string{"en"},
					Config:    map[string]string{"token": "secret-token"},
				},
				{ID: "src-2", Name: "notes", Type: domain.SourceTypeFilesystem},
			},
		}

		ports := &Ports{
			Search: &mockSearchService{},
			Sync:   &mockSyncOrchestrator{},
			Source: mockSource,
		}
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleSourcesResource(ctx, readRequest("korpus://sources"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "korpus://sources", result.Contents[0].URI)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var infos []map[string]any
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &infos))
		require.Len(t, infos, 2)
		assert.Equal(t, "src-1", infos[0]["id"])
		assert.Equal(t, "wiki", infos[0]["type"])
		assert.Equal(t, true, infos[0]["enabled"])

		// Connector config must not leak credentials.
		assert.NotContains(t, result.Contents[0].Text, "secret-token")
	})

	t.Run("nil source port serves an empty list", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}, Sync: &mockSyncOrchestrator{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleSourcesResource(ctx, readRequest("korpus://sources"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("propagates list errors", func(t *testing.T) {
		mockSource := &mockSourceService{err: domain.ErrNotFound}
		ports := &Ports{
			Search: &mockSearchService{},
			Sync:   &mockSyncOrchestrator{},
			Source: mockSource,
		}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, err = server.handleSourcesResource(ctx, readRequest("korpus://sources"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing sources")
	})
}

func TestServer_handleSourceStatusResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns status as JSON", func(t *testing.T) {
		mockSync := &mockSyncOrchestrator{
			status: &domain.SyncStatus{
				SourceID:   "src-1",
				SourceName: "team wiki",
				Running:    true,
			},
		}
		ports := &Ports{Search: &mockSearchService{}, Sync: mockSync}
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleSourceStatusResource(ctx, readRequest("korpus://sources/src-1/status"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var status SourceStatusOutput
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &status))
		assert.Equal(t, "src-1", status.SourceID)
		assert.Equal(t, "team wiki", status.Name)
		assert.True(t, status.Running)
	})

	t.Run("unknown source maps to resource not found", func(t *testing.T) {
		mockSync := &mockSyncOrchestrator{err: domain.ErrNotFound}
		ports := &Ports{Search: &mockSearchService{}, Sync: mockSync}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, err = server.handleSourceStatusResource(ctx, readRequest("korpus://sources/missing/status"))

		require.Error(t, err)
	})

	t.Run("malformed URI maps to resource not found", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}, Sync: &mockSyncOrchestrator{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, err = server.handleSourceStatusResource(ctx, readRequest("korpus://documents/doc-1"))

		require.Error(t, err)
	})
}

func TestExtractSourceID(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"valid status URI", "korpus://sources/src-1/status", "src-1"},
		{"uuid source id", "korpus://sources/7f3a2b1c/status", "7f3a2b1c"},
		{"missing suffix", "korpus://sources/src-1", ""},
		{"wrong prefix", "korpus://documents/src-1/status", ""},
		{"empty id", "korpus://sources//status", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractSourceID(tt.uri))
		})
	}
}
