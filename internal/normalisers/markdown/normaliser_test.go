package markdown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	normaliser := New()
	mimeTypes := normaliser.SupportedMIMETypes()

	require.NotEmpty(t, mimeTypes)
	assert.Contains(t, mimeTypes, "text/markdown")
	assert.Contains(t, mimeTypes, "text/x-markdown")
}

func TestSupportedSourceTypes(t *testing.T) {
	normaliser := New()
	assert.Nil(t, normaliser.SupportedSourceTypes())
}

func TestPriority(t *testing.T) {
	normaliser := New()
	assert.Equal(t, 50, normaliser.Priority())
}

func TestNormalise_Success(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	payload := `# Project Overview

Some **bold** intro with a [link](https://example.com).

## Details

- item one
- item two
`

	modified := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)
	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "docs/overview.md",
		URI:        "/docs/overview.md",
		MIMEType:   "text/markdown",
		Payload:    []byte(payload),
		Metadata:   map[string]any{"modified_at": modified},
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	require.NotNil(t, result)

	doc := result.Document
	assert.Equal(t, domain.DocumentID("src-1", "docs/overview.md"), doc.ID)
	assert.Equal(t, "Project Overview", doc.Title)
	assert.Contains(t, doc.Content, "Some bold intro with a link.")
	assert.Contains(t, doc.Content, "item one")
	assert.NotContains(t, doc.Content, "**")
	assert.NotContains(t, doc.Content, "](")
	assert.NotContains(t, doc.Content, "# ")
	assert.Equal(t, domain.HashContent(doc.Content), doc.ContentHash)
	assert.Equal(t, modified, doc.UpdatedAt)

	require.NotNil(t, doc.Metadata)
	assert.Equal(t, []string{"Project Overview", "Details"}, doc.Metadata["headings"])
}

func TestNormalise_NilItem(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	result, err := normaliser.Normalise(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_StripsCodeBlocks(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	payload := "# Guide\n\n```\nsecretFunction()\n```\n\nAfter the code."
	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "guide.md",
		URI:        "/guide.md",
		MIMEType:   "text/markdown",
		Payload:    []byte(payload),
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	assert.NotContains(t, result.Document.Content, "secretFunction")
	assert.Contains(t, result.Document.Content, "After the code.")
}

func TestNormalise_NoHeadings(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "flat.md",
		URI:        "/flat.md",
		MIMEType:   "text/markdown",
		Payload:    []byte("Just a paragraph without structure."),
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	assert.Nil(t, result.Document.Metadata)
	assert.Equal(t, "flat", result.Document.Title)
}

func TestNormalise_TitleExtraction(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	tests := []struct {
		name          string
		content       string
		uri           string
		expectedTitle string
	}{
		{
			name:          "first h1 wins",
			content:       "# Real Title\n\n# Second Heading",
			uri:           "/docs/file.md",
			expectedTitle: "Real Title",
		},
		{
			name:          "h1 after other content",
			content:       "intro text\n\n# Late Title",
			uri:           "/docs/file.md",
			expectedTitle: "Late Title",
		},
		{
			name:          "h2 does not become title",
			content:       "## Subsection Only",
			uri:           "/docs/release-notes.md",
			expectedTitle: "release notes",
		},
		{
			name:          "uri fallback",
			content:       "no headings here",
			uri:           "/docs/api_reference.md",
			expectedTitle: "api reference",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &domain.RawItem{
				SourceID:   "src-1",
				ExternalID: tt.uri,
				URI:        tt.uri,
				MIMEType:   "text/markdown",
				Payload:    []byte(tt.content),
			}

			result, err := normaliser.Normalise(ctx, item)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedTitle, result.Document.Title)
		})
	}
}
