package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for korpus resources.
	uriScheme = "korpus://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing sources.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "List of all configured document sources",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	// Template for per-source sync status.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{sourceId}/status",
		Name:        "source-status",
		Description: "Sync status of a specific source",
		MIMEType:    "application/json",
	}, s.handleSourceStatusResource)
}

// handleSourcesResource returns a list of all configured sources.
func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Source == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	sources, err := s.ports.Source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	// Build simplified source list. Config is withheld because it can
	// carry credentials.
	type sourceInfo struct {
		ID         string   `json:"id"`
		Name       string   `json:"name"`
		Type       string   `json:"type"`
		Enabled    bool     `json:"enabled"`
		Languages  []string `json:"languages,omitempty"`
		Categories []string `json:"categories,omitempty"`
	}

	infos := make([]sourceInfo, len(sources))
	for i := range sources {
		infos[i] = sourceInfo{
			ID:         sources[i].ID,
			Name:       sources[i].Name,
			Type:       string(sources[i].Type),
			Enabled:    sources[i].Enabled,
			Languages:  sources[i].Languages,
			Categories: sources[i].Categories,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling sources: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleSourceStatusResource returns sync health for a specific source.
func (s *Server) handleSourceStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract sourceId from URI: korpus://sources/{sourceId}/status
	sourceID := extractSourceID(req.Params.URI)
	if sourceID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Sync.Status(ctx, sourceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting status: %w", err)
	}

	data, err := json.MarshalIndent(sourceStatus(status), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSourceID extracts the source ID from a URI like korpus://sources/{sourceId}/status.
func extractSourceID(uri string) string {
	const prefix = uriScheme + "sources/"
	const suffix = "/status"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
