package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

const testIssueJSON = `{
	"number": 42,
	"title": "Crash on resync",
	"body": "Resyncing a large source panics the worker.",
	"state": "open",
	"author": "octocat",
	"created_at": "2025-01-10T09:00:00Z",
	"updated_at": "2025-01-12T15:30:00Z",
	"labels": ["bug", "sync"],
	"assignees": ["hubber"],
	"milestone": "v1.0",
	"comments": [
		{
			"author": "reviewer",
			"body": "Reproduced on the wiki connector too.",
			"created_at": "2025-01-11T10:00:00Z"
		}
	]
}`

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	normaliser := New()
	mimeTypes := normaliser.SupportedMIMETypes()

	require.Len(t, mimeTypes, 1)
	assert.Contains(t, mimeTypes, MIMETypeIssue)
}

func TestSupportedSourceTypes(t *testing.T) {
	normaliser := New()
	assert.Equal(t, []domain.SourceType{domain.SourceTypeGitHub}, normaliser.SupportedSourceTypes())
}

func TestPriority(t *testing.T) {
	normaliser := New()
	assert.Equal(t, 95, normaliser.Priority())
}

func TestNormalise_Success(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "issue-42",
		URI:        "https://github.com/acme/widgets/issues/42",
		MIMEType:   MIMETypeIssue,
		Payload:    []byte(testIssueJSON),
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	require.NotNil(t, result)

	doc := result.Document
	assert.Equal(t, domain.DocumentID("src-1", "issue-42"), doc.ID)
	assert.Equal(t, "Issue #42: Crash on resync", doc.Title)
	assert.Equal(t, "octocat", doc.Author)
	assert.Equal(t, "issue", doc.Category)
	assert.Contains(t, doc.Content, "Resyncing a large source panics the worker.")
	assert.Contains(t, doc.Content, "@reviewer")
	assert.Contains(t, doc.Content, "Reproduced on the wiki connector too.")
	assert.Contains(t, doc.Content, "Milestone: v1.0")
	assert.Equal(t, domain.HashContent(doc.Content), doc.ContentHash)
	assert.Equal(t, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), doc.CreatedAt)
	assert.Equal(t, time.Date(2025, 1, 12, 15, 30, 0, 0, time.UTC), doc.UpdatedAt)

	require.NotNil(t, doc.Metadata)
	assert.Equal(t, "open", doc.Metadata["state"])
	assert.Equal(t, 1, doc.Metadata["comment_count"])
	assert.Equal(t, []string{"bug", "sync"}, doc.Metadata["labels"])
}

func TestNormalise_NilItem(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	result, err := normaliser.Normalise(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_MalformedJSON(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "issue-x",
		URI:        "https://github.com/acme/widgets/issues/x",
		MIMEType:   MIMETypeIssue,
		Payload:    []byte("{not json"),
	}

	result, err := normaliser.Normalise(ctx, item)
	assert.ErrorIs(t, err, domain.ErrCorruptPayload)
	assert.Nil(t, result)
}

func TestNormalise_EmptyBody(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "issue-7",
		URI:        "https://github.com/acme/widgets/issues/7",
		MIMEType:   MIMETypeIssue,
		Payload:    []byte(`{"number": 7, "title": "Empty", "state": "open", "author": "octocat"}`),
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	assert.Contains(t, result.Document.Content, "No description provided.")
	assert.Equal(t, 0, result.Document.Metadata["comment_count"])
	assert.NotContains(t, result.Document.Metadata, "labels")
}

func TestNormalise_ZeroUpdatedFallsBackToFetchedAt(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	fetched := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)
	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "issue-8",
		URI:        "https://github.com/acme/widgets/issues/8",
		MIMEType:   MIMETypeIssue,
		Payload:    []byte(`{"number": 8, "title": "Stale", "state": "closed", "author": "octocat"}`),
		FetchedAt:  fetched,
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, fetched, result.Document.UpdatedAt)
}
