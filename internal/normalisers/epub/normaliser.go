// Package epub normalises EPUB e-books: chapters are read in spine
// order out of the container, markup is stripped, and chapter
// boundaries are kept as structure.
package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EPUB payloads.
type Normaliser struct{}

// New creates an EPUB normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/epub+zip"}
}

// SupportedSourceTypes returns source types for specialised handling.
func (n *Normaliser) SupportedSourceTypes() []domain.SourceType {
	return nil // All sources
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise converts an EPUB item into a canonical document.
func (n *Normaliser) Normalise(_ context.Context, item *domain.RawItem) (*driven.NormaliseResult, error) {
	if item == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(item.Payload), int64(len(item.Payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: not an epub container: %v", domain.ErrCorruptPayload, err)
	}

	book, err := readPackage(reader)
	if err != nil {
		return nil, err
	}

	chapters, titles, err := readChapters(reader, book)
	if err != nil {
		return nil, err
	}
	content := domain.CleanText(strings.Join(chapters, "\n\n"))
	ts := modifiedAt(item)

	metadata := copyMetadata(item.Metadata)
	if len(titles) > 0 {
		if metadata == nil {
			metadata = make(map[string]any)
		}
		metadata["chapters"] = titles
	}

	title := book.Metadata.Title
	if title == "" {
		title = titleFromURI(item.URI)
	}

	doc := domain.Document{
		ID:          domain.DocumentID(item.SourceID, item.ExternalID),
		SourceID:    item.SourceID,
		ExternalID:  item.ExternalID,
		URI:         item.URI,
		Title:       strings.TrimSpace(title),
		Author:      strings.TrimSpace(book.Metadata.Creator),
		Language:    primaryLang(book.Metadata.Language),
		Content:     content,
		ContentHash: domain.HashContent(content),
		Metadata:    metadata,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// containerXML mirrors META-INF/container.xml.
type containerXML struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath string `xml:"full-path,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// packageXML mirrors the parts of the OPF package document we read.
type packageXML struct {
	dir      string
	Metadata struct {
		Title    string `xml:"title"`
		Creator  string `xml:"creator"`
		Language string `xml:"language"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Href string `xml:"href,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemrefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// readPackage locates and parses the OPF package document.
func readPackage(reader *zip.Reader) (*packageXML, error) {
	raw, err := readZipFile(reader, "META-INF/container.xml")
	if err != nil {
		return nil, fmt.Errorf("%w: missing container descriptor", domain.ErrCorruptPayload)
	}
	var container containerXML
	if err := xml.Unmarshal(raw, &container); err != nil {
		return nil, fmt.Errorf("%w: parsing container descriptor: %v", domain.ErrCorruptPayload, err)
	}
	if len(container.Rootfiles.Rootfile) == 0 {
		return nil, fmt.Errorf("%w: no package document listed", domain.ErrCorruptPayload)
	}

	opfPath := container.Rootfiles.Rootfile[0].FullPath
	raw, err = readZipFile(reader, opfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: missing package document %s", domain.ErrCorruptPayload, opfPath)
	}
	var pkg packageXML
	if err := xml.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("%w: parsing package document: %v", domain.ErrCorruptPayload, err)
	}
	pkg.dir = path.Dir(opfPath)
	return &pkg, nil
}

var chapterTitle = regexp.MustCompile(`(?is)<(?:title|h[1-3])[^>]*>(.*?)</(?:title|h[1-3])>`)

// readChapters extracts chapter text in spine order.
func readChapters(reader *zip.Reader, book *packageXML) (chapters, titles []string, err error) {
	hrefs := make(map[string]string, len(book.Manifest.Items))
	for _, item := range book.Manifest.Items {
		hrefs[item.ID] = item.Href
	}

	for _, ref := range book.Spine.Itemrefs {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		raw, rerr := readZipFile(reader, path.Join(book.dir, href))
		if rerr != nil {
			return nil, nil, fmt.Errorf("%w: missing chapter %s", domain.ErrCorruptPayload, href)
		}

		text := strings.TrimSpace(html.StripTags(string(raw)))
		if text == "" {
			continue
		}
		chapters = append(chapters, text)
		if m := chapterTitle.FindSubmatch(raw); len(m) > 1 {
			if t := strings.TrimSpace(string(m[1])); t != "" {
				titles = append(titles, t)
			}
		}
	}
	return chapters, titles, nil
}

func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, domain.ErrNotFound
}

// primaryLang reduces a language tag to its primary subtag.
func primaryLang(tag string) string {
	lang, _, _ := strings.Cut(strings.TrimSpace(tag), "-")
	return strings.ToLower(lang)
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
