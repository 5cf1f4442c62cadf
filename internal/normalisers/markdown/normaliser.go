// Package markdown normalises Markdown payloads: formatting is
// stripped to plain text and headings are collected as structure.
package markdown

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown payloads.
type Normaliser struct{}

// New creates a Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// SupportedSourceTypes returns source types for specialised handling.
func (n *Normaliser) SupportedSourceTypes() []domain.SourceType {
	return nil // All sources
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts a Markdown item into a canonical document.
func (n *Normaliser) Normalise(_ context.Context, item *domain.RawItem) (*driven.NormaliseResult, error) {
	if item == nil {
		return nil, domain.ErrInvalidInput
	}

	raw := string(item.Payload)
	headings := extractHeadings(raw)
	content := domain.CleanText(stripMarkdown(raw))
	ts := modifiedAt(item)

	metadata := copyMetadata(item.Metadata)
	if len(headings) > 0 {
		if metadata == nil {
			metadata = make(map[string]any)
		}
		metadata["headings"] = headings
	}

	doc := domain.Document{
		ID:          domain.DocumentID(item.SourceID, item.ExternalID),
		SourceID:    item.SourceID,
		ExternalID:  item.ExternalID,
		URI:         item.URI,
		Title:       extractTitle(raw, item.URI),
		Content:     content,
		ContentHash: domain.HashContent(content),
		Metadata:    metadata,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

var headingLine = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// extractHeadings collects heading text in document order.
func extractHeadings(content string) []string {
	matches := headingLine.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	headings := make([]string, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, strings.TrimSpace(m[2]))
	}
	return headings
}

// extractTitle uses the first H1, falling back to the URI basename.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	filename := filepath.Base(uri)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// Pre-compiled expressions for Markdown stripping.
var (
	codeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode   = regexp.MustCompile("`[^`]+`")
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headingMarks = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquotes  = regexp.MustCompile(`(?m)^>\s*`)
	horizontal   = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
)

// stripMarkdown removes common Markdown formatting, keeping the text.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = headingMarks.ReplaceAllString(content, "")

	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = strings.ReplaceAll(content, "_", " ")

	content = blockquotes.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")

	return strings.TrimSpace(content)
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
