// Package docx normalises Word documents: text is pulled out of the
// OOXML container paragraph by paragraph, with page boundaries kept as
// structure.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX payloads.
type Normaliser struct{}

// New creates a DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// SupportedSourceTypes returns source types for specialised handling.
func (n *Normaliser) SupportedSourceTypes() []domain.SourceType {
	return nil // All sources
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise converts a DOCX item into a canonical document.
func (n *Normaliser) Normalise(_ context.Context, item *domain.RawItem) (*driven.NormaliseResult, error) {
	if item == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(item.Payload), int64(len(item.Payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx container: %v", domain.ErrCorruptPayload, err)
	}

	text, pages, err := extractDocumentText(reader)
	if err != nil {
		return nil, err
	}
	content := domain.CleanText(text)
	title, author := extractCoreProperties(reader, item.URI)
	ts := modifiedAt(item)

	metadata := copyMetadata(item.Metadata)
	if pages > 1 {
		if metadata == nil {
			metadata = make(map[string]any)
		}
		metadata["page_count"] = pages
	}

	doc := domain.Document{
		ID:          domain.DocumentID(item.SourceID, item.ExternalID),
		SourceID:    item.SourceID,
		ExternalID:  item.ExternalID,
		URI:         item.URI,
		Title:       title,
		Author:      author,
		Content:     content,
		ContentHash: domain.HashContent(content),
		Metadata:    metadata,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// extractDocumentText extracts paragraph text and the page count from
// word/document.xml. Paragraphs become blank-line separated so the
// chunker sees them as boundaries.
func extractDocumentText(reader *zip.Reader) (string, int, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", 0, fmt.Errorf("%w: opening document part: %v", domain.ErrCorruptPayload, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", 0, fmt.Errorf("%w: reading document part: %v", domain.ErrCorruptPayload, err)
		}

		text, err := parseDocumentXML(raw)
		if err != nil {
			return "", 0, err
		}
		return text, countPages(raw), nil
	}
	return "", 0, fmt.Errorf("%w: missing word/document.xml", domain.ErrCorruptPayload)
}

// documentXML mirrors the parts of word/document.xml we read.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func parseDocumentXML(raw []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("%w: parsing document xml: %v", domain.ErrCorruptPayload, err)
	}

	var b strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		for _, r := range para.Runs {
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// countPages counts rendered page breaks; a document without breaks is
// one page.
func countPages(raw []byte) int {
	breaks := bytes.Count(raw, []byte("lastRenderedPageBreak")) +
		bytes.Count(raw, []byte(`w:type="page"`))
	return breaks + 1
}

// coreXML mirrors the parts of docProps/core.xml we read.
type coreXML struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
}

// extractCoreProperties reads title and author from docProps/core.xml,
// with the URI basename as the title fallback.
func extractCoreProperties(reader *zip.Reader, uri string) (title, author string) {
	for _, file := range reader.File {
		if file.Name != "docProps/core.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			break
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			break
		}

		var core coreXML
		if err := xml.Unmarshal(raw, &core); err == nil {
			title = strings.TrimSpace(core.Title)
			author = strings.TrimSpace(core.Creator)
		}
		break
	}

	if title == "" {
		filename := filepath.Base(uri)
		ext := filepath.Ext(filename)
		if ext != "" {
			filename = strings.TrimSuffix(filename, ext)
		}
		filename = strings.ReplaceAll(filename, "_", " ")
		filename = strings.ReplaceAll(filename, "-", " ")
		title = filename
	}
	return title, author
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
