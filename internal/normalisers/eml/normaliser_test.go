package eml

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

const simpleEmail = `From: alice@example.com
To: bob@example.com
Date: Tue, 14 Jan 2025 10:30:00 +0000
Subject: Deployment schedule

The deployment is planned for Thursday morning.
`

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	normaliser := New()
	mimeTypes := normaliser.SupportedMIMETypes()

	require.Len(t, mimeTypes, 1)
	assert.Contains(t, mimeTypes, "message/rfc822")
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

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "mail/1042",
		URI:        "/mail/1042.eml",
		MIMEType:   "message/rfc822",
		Payload:    []byte(simpleEmail),
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	require.NotNil(t, result)

	doc := result.Document
	assert.Equal(t, domain.DocumentID("src-1", "mail/1042"), doc.ID)
	assert.Equal(t, "Deployment schedule", doc.Title)
	assert.Equal(t, "alice@example.com", doc.Author)
	assert.Contains(t, doc.Content, "From: alice@example.com")
	assert.Contains(t, doc.Content, "Subject: Deployment schedule")
	assert.Contains(t, doc.Content, "The deployment is planned for Thursday morning.")
	assert.Equal(t, domain.HashContent(doc.Content), doc.ContentHash)
	assert.True(t, doc.UpdatedAt.Equal(time.Date(2025, 1, 14, 10, 30, 0, 0, time.UTC)))
}

func TestNormalise_NilItem(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	result, err := normaliser.Normalise(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_Malformed(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "mail/bad",
		URI:        "/mail/bad.eml",
		MIMEType:   "message/rfc822",
		Payload:    []byte("not an email at all"),
	}

	result, err := normaliser.Normalise(ctx, item)
	assert.ErrorIs(t, err, domain.ErrCorruptPayload)
	assert.Nil(t, result)
}

func TestNormalise_Multipart(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	payload := `From: bob@example.com
To: carol@example.com
Subject: Weekly update
Content-Type: multipart/alternative; boundary="BOUNDARY"

--BOUNDARY
Content-Type: text/plain

Plain text body here.
--BOUNDARY
Content-Type: text/html

<html><body><p>HTML body here.</p></body></html>
--BOUNDARY--
`

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "mail/2001",
		URI:        "/mail/2001.eml",
		MIMEType:   "message/rfc822",
		Payload:    []byte(payload),
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	assert.Contains(t, result.Document.Content, "Plain text body here.")
	assert.NotContains(t, result.Document.Content, "HTML body here.")
	assert.NotContains(t, result.Document.Content, "<p>")
}

func TestNormalise_HTMLOnly(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	payload := `From: dan@example.com
Subject: Newsletter
Content-Type: text/html

<html><body><h1>Headline</h1><p>Article text.</p></body></html>
`

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "mail/3001",
		URI:        "/mail/3001.eml",
		MIMEType:   "message/rfc822",
		Payload:    []byte(payload),
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	assert.Contains(t, result.Document.Content, "Headline")
	assert.Contains(t, result.Document.Content, "Article text.")
	assert.NotContains(t, result.Document.Content, "<h1>")
}

func TestNormalise_MissingSubject(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	payload := `From: eve@example.com

Body without a subject.
`

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "mail/4001",
		URI:        "/mail/archived_thread.eml",
		MIMEType:   "message/rfc822",
		Payload:    []byte(payload),
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, "archived thread", result.Document.Title)
}
