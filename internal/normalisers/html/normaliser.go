// Package html normalises HTML payloads: markup is stripped to plain
// text, headings become document structure, and a declared document
// language is carried through for source-level filtering.
package html

import (
	"context"
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML payloads.
type Normaliser struct{}

// New creates an HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// SupportedSourceTypes returns source types for specialised handling.
func (n *Normaliser) SupportedSourceTypes() []domain.SourceType {
	return nil // All sources
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts an HTML item into a canonical document.
func (n *Normaliser) Normalise(_ context.Context, item *domain.RawItem) (*driven.NormaliseResult, error) {
	if item == nil {
		return nil, domain.ErrInvalidInput
	}

	raw := string(item.Payload)
	headings := extractHeadings(raw)
	content := domain.CleanText(StripTags(raw))
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
		Language:    extractLang(raw),
		Content:     content,
		ContentHash: domain.HashContent(content),
		Metadata:    metadata,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// Pre-compiled expressions for HTML parsing.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	langAttr          = regexp.MustCompile(`(?is)<html[^>]*\slang=["']?([a-zA-Z-]+)["']?`)
	headingTag        = regexp.MustCompile(`(?is)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
)

// extractTitle uses the <title> tag, falling back to the URI basename.
func extractTitle(content, uri string) string {
	if matches := titleTag.FindStringSubmatch(content); len(matches) > 1 {
		title := html.UnescapeString(strings.TrimSpace(matches[1]))
		if title != "" {
			return title
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

// extractLang reads the lang attribute off the root element, reduced
// to its primary subtag ("en-GB" becomes "en").
func extractLang(content string) string {
	matches := langAttr.FindStringSubmatch(content)
	if len(matches) < 2 {
		return ""
	}
	lang, _, _ := strings.Cut(matches[1], "-")
	return strings.ToLower(lang)
}

// extractHeadings collects h1-h6 text in document order.
func extractHeadings(content string) []string {
	matches := headingTag.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	headings := make([]string, 0, len(matches))
	for _, m := range matches {
		text := html.UnescapeString(strings.TrimSpace(allTags.ReplaceAllString(m[1], "")))
		if text != "" {
			headings = append(headings, text)
		}
	}
	return headings
}

// StripTags removes markup and extracts readable text content. Block
// elements become line breaks so paragraph structure survives for the
// chunker.
func StripTags(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")

	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
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
