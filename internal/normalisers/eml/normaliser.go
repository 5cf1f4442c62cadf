// Package eml normalises RFC 822 email files: headers and the best
// text part become one searchable document. Filesystem sources emit
// these for exported mailboxes.
package eml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EML payloads.
type Normaliser struct{}

// New creates an EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// SupportedSourceTypes returns source types for specialised handling.
func (n *Normaliser) SupportedSourceTypes() []domain.SourceType {
	return nil // All sources
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise converts an email item into a canonical document.
func (n *Normaliser) Normalise(_ context.Context, item *domain.RawItem) (*driven.NormaliseResult, error) {
	if item == nil {
		return nil, domain.ErrInvalidInput
	}

	msg, err := mail.ReadMessage(bytes.NewReader(item.Payload))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing message: %v", domain.ErrCorruptPayload, err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	to := decodeHeader(msg.Header.Get("To"))
	date := msg.Header.Get("Date")

	body, err := extractBody(msg)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, header := range []struct{ name, value string }{
		{"From", from}, {"To", to}, {"Date", date}, {"Subject", subject},
	} {
		if header.value != "" {
			sb.WriteString(header.name)
			sb.WriteString(": ")
			sb.WriteString(header.value)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(body)
	content := domain.CleanText(sb.String())

	title := subject
	if title == "" {
		title = titleFromURI(item.URI)
	}

	ts := item.FetchedAt
	if sent, derr := mail.ParseDate(date); derr == nil {
		ts = sent
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	doc := domain.Document{
		ID:          domain.DocumentID(item.SourceID, item.ExternalID),
		SourceID:    item.SourceID,
		ExternalID:  item.ExternalID,
		URI:         item.URI,
		Title:       title,
		Author:      from,
		Content:     content,
		ContentHash: domain.HashContent(content),
		Metadata:    copyMetadata(item.Metadata),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractBody extracts the text content from an email message,
// preferring plain text parts over HTML ones.
func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", fmt.Errorf("%w: reading body: %v", domain.ErrCorruptPayload, readErr)
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(msg.Body, params["boundary"])
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", domain.ErrCorruptPayload, err)
	}
	if mediaType == "text/html" {
		return stripTags(string(body)), nil
	}
	return string(body), nil
}

// extractMultipartBody collects text parts across the multipart tree.
func extractMultipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		content, readErr := io.ReadAll(part)
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, stripTags(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, nestedErr := extractMultipartBody(bytes.NewReader(content), params["boundary"])
			if nestedErr == nil && nested != "" {
				textParts = append(textParts, nested)
			}
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	return strings.Join(htmlParts, "\n"), nil
}

// stripTags removes markup for basic text extraction. Email HTML is
// messy enough that a character scan beats a real parser here.
func stripTags(markup string) string {
	var b strings.Builder
	inTag := false
	for _, r := range markup {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	lines := strings.Split(b.String(), "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
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
