package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// createTestEPUB builds a minimal EPUB container in memory.
func createTestEPUB(files map[string]string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	for name, content := range files {
		f, _ := w.Create(name)
		f.Write([]byte(content))
	}

	w.Close()
	return buf.Bytes()
}

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
<rootfiles>
<rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
</rootfiles>
</container>`

const testPackageXML = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
<metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>The Go Workbook</dc:title>
<dc:creator>Ada Writer</dc:creator>
<dc:language>en-GB</dc:language>
</metadata>
<manifest>
<item id="ch1" href="chapter1.xhtml" media-type="application/xhtml+xml"/>
<item id="ch2" href="chapter2.xhtml" media-type="application/xhtml+xml"/>
</manifest>
<spine>
<itemref idref="ch2"/>
<itemref idref="ch1"/>
</spine>
</package>`

func testBookFiles() map[string]string {
	return map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testPackageXML,
		"OEBPS/chapter1.xhtml": `<html><head><title>Chapter One</title></head>
<body><p>Contents of chapter one.</p></body></html>`,
		"OEBPS/chapter2.xhtml": `<html><head><title>Chapter Two</title></head>
<body><p>Contents of chapter two.</p></body></html>`,
	}
}

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	normaliser := New()
	mimeTypes := normaliser.SupportedMIMETypes()

	require.Len(t, mimeTypes, 1)
	assert.Contains(t, mimeTypes, "application/epub+zip")
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
		ExternalID: "workbook.epub",
		URI:        "/books/workbook.epub",
		MIMEType:   "application/epub+zip",
		Payload:    createTestEPUB(testBookFiles()),
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	require.NotNil(t, result)

	doc := result.Document
	assert.Equal(t, domain.DocumentID("src-1", "workbook.epub"), doc.ID)
	assert.Equal(t, "The Go Workbook", doc.Title)
	assert.Equal(t, "Ada Writer", doc.Author)
	assert.Equal(t, "en", doc.Language)
	assert.Equal(t, "Contents of chapter two.\n\nContents of chapter one.", doc.Content)
	assert.Equal(t, domain.HashContent(doc.Content), doc.ContentHash)

	require.NotNil(t, doc.Metadata)
	assert.Equal(t, []string{"Chapter Two", "Chapter One"}, doc.Metadata["chapters"])
}

func TestNormalise_NilItem(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	result, err := normaliser.Normalise(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_InvalidZip(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "broken.epub",
		URI:        "/broken.epub",
		MIMEType:   "application/epub+zip",
		Payload:    []byte("this is not a zip archive"),
	}

	result, err := normaliser.Normalise(ctx, item)
	assert.ErrorIs(t, err, domain.ErrCorruptPayload)
	assert.Nil(t, result)
}

func TestNormalise_MissingContainer(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "bare.epub",
		URI:        "/bare.epub",
		MIMEType:   "application/epub+zip",
		Payload:    createTestEPUB(map[string]string{"mimetype": "application/epub+zip"}),
	}

	result, err := normaliser.Normalise(ctx, item)
	assert.ErrorIs(t, err, domain.ErrCorruptPayload)
	assert.Nil(t, result)
}

func TestNormalise_MissingChapter(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	files := testBookFiles()
	delete(files, "OEBPS/chapter1.xhtml")

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "torn.epub",
		URI:        "/torn.epub",
		MIMEType:   "application/epub+zip",
		Payload:    createTestEPUB(files),
	}

	result, err := normaliser.Normalise(ctx, item)
	assert.ErrorIs(t, err, domain.ErrCorruptPayload)
	assert.Nil(t, result)
}

func TestNormalise_TitleFallsBackToURI(t *testing.T) {
	normaliser := New()
	ctx := context.Background()

	files := testBookFiles()
	files["OEBPS/content.opf"] = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
<metadata xmlns:dc="http://purl.org/dc/elements/1.1/"></metadata>
<manifest>
<item id="ch1" href="chapter1.xhtml" media-type="application/xhtml+xml"/>
</manifest>
<spine><itemref idref="ch1"/></spine>
</package>`

	item := &domain.RawItem{
		SourceID:   "src-1",
		ExternalID: "untitled.epub",
		URI:        "/books/field_notes.epub",
		MIMEType:   "application/epub+zip",
		Payload:    createTestEPUB(files),
	}

	result, err := normaliser.Normalise(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, "field notes", result.Document.Title)
	assert.Empty(t, result.Document.Language)
}
