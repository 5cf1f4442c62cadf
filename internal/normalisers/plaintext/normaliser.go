// Package plaintext is the fallback normaliser: any text-like payload
// becomes a document with the payload as its content.
package plaintext

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text payloads.
type Normaliser struct{}

// New creates a plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/x-go",
		"text/x-python",
		"text/x-rust",
		"text/x-java",
		"text/x-c",
		"text/x-c++",
		"text/x-ruby",
		"text/x-shellscript",
		"text/x-sql",
		"text/csv",
		"text/yaml",
		"text/toml",
		"text/javascript",
		"text/typescript",
		"text/css",
		"application/json",
		"application/xml",
	}
}

// SupportedSourceTypes returns source types for specialised handling.
func (n *Normaliser) SupportedSourceTypes() []domain.SourceType {
	return nil // All sources
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts a raw item into a canonical document. The payload
// is taken as-is, cleaned, and hashed.
func (n *Normaliser) Normalise(_ context.Context, item *domain.RawItem) (*driven.NormaliseResult, error) {
	if item == nil {
		return nil, domain.ErrInvalidInput
	}

	content := domain.CleanText(string(item.Payload))
	ts := modifiedAt(item)

	doc := domain.Document{
		ID:          domain.DocumentID(item.SourceID, item.ExternalID),
		SourceID:    item.SourceID,
		ExternalID:  item.ExternalID,
		URI:         item.URI,
		Title:       titleFor(item),
		Content:     content,
		ContentHash: domain.HashContent(content),
		Metadata:    copyMetadata(item.Metadata),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// titleFor prefers a connector-supplied title over one derived from
// the URI. Drive-style connectors set Metadata["title"] to the real
// file name.
func titleFor(item *domain.RawItem) string {
	if item.Metadata != nil {
		if title, ok := item.Metadata["title"].(string); ok && title != "" {
			return title
		}
	}
	return titleFromURI(item.URI)
}

// titleFromURI derives a human-readable title from the URI basename.
func titleFromURI(uri string) string {
	filename := filepath.Base(uri)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// modifiedAt prefers the upstream modification time over the fetch time.
func modifiedAt(item *domain.RawItem) time.Time {
	if item.Metadata != nil {
		if ts, ok := item.Metadata["modified_at"].(time.Time); ok && !ts.IsZero() {
			return ts
		}
	}
	if !item.FetchedAt.IsZero() {
		return item.FetchedAt
	}
	return time.Now().UTC()
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
