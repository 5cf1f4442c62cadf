package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// idLength is the number of hex characters kept from a SHA-256 digest
// for document and chunk identifiers.
const idLength = 32

// Document is the canonical unit derived from one RawItem.
// Its ID is content-addressed over (source id, external id) so
// re-processing the same upstream item always yields the same document.
type Document struct {
	// ID is hex(sha256(source id, external id)) truncated to 32 chars.
	ID string

	// SourceID identifies the owning source.
	SourceID string

	// ExternalID is the item's identifier in the upstream system.
	ExternalID string

	// URI is a stable human-facing address.
	URI string

	// Title is the extracted document title.
	Title string

	// Author is the upstream author, where the format carries one.
	Author string

	// Language is the declared or detected language code.
	Language string

	// Category is the content category (doc, wiki, issue).
	Category string

	// Content is the normalised UTF-8 text.
	Content string

	// ContentHash is the hex SHA-256 of the normalised text, not the
	// raw payload, so formatting-only upstream edits do not re-embed.
	ContentHash string

	// Version increments each time ContentHash changes. Monotonic per
	// external id.
	Version int64

	// IndexedVersion is the version whose chunks are live in the index.
	// Trails Version while a re-index is pending or has failed.
	IndexedVersion int64

	// Metadata carries format-specific structure (headings, thread size).
	Metadata map[string]any

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the current version was ingested.
	UpdatedAt time.Time
}

// Chunk is a retrieval-sized passage of a document. Its ID is
// content-addressed over (document id, version, ordinal) so re-chunking
// an unchanged document yields identical ids, which is what lets the
// embedding stage skip work it has already paid for.
type Chunk struct {
	// ID is hex(sha256(document id, version, ordinal)) truncated to 32 chars.
	ID string

	// DocumentID back-references the owning document.
	DocumentID string

	// Version is the document version this chunk belongs to.
	Version int64

	// Ordinal is the chunk's position within the document, from 0.
	Ordinal int

	// Content is the chunk text.
	Content string

	// TokenCount is the whitespace-word token count of Content.
	TokenCount int

	// StartToken and EndToken are the chunk's half-open token span
	// within the document token stream.
	StartToken int
	EndToken   int

	// Embedding is the vector representation, nil until generated.
	Embedding []float32
}

// DocumentID derives the content-addressed document identifier.
func DocumentID(sourceID, externalID string) string {
	sum := sha256.Sum256([]byte(sourceID + "\x00" + externalID))
	return hex.EncodeToString(sum[:])[:idLength]
}

// ChunkID derives the content-addressed chunk identifier.
func ChunkID(documentID string, version int64, ordinal int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d\x00%d", documentID, version, ordinal)))
	return hex.EncodeToString(sum[:])[:idLength]
}

// HashContent returns the hex SHA-256 of normalised text.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CleanText sanitises normaliser output: invalid UTF-8 sequences are
// dropped, control characters other than newline and tab are stripped,
// and runs of blank lines are collapsed to one.
func CleanText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			continue
		}
		b.WriteRune(r)
	}

	collapsed := collapseBlankLines(b.String())
	return strings.TrimSpace(collapsed)
}

// collapseBlankLines reduces three or more consecutive newlines to two,
// preserving paragraph boundaries without stretches of empty space.
func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

// CountTokens returns the whitespace-word token count used for chunk
// sizing and budget estimates.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}
