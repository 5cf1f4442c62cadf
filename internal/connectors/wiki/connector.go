package wiki

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// categoryWiki is the content category every page carries.
const categoryWiki = "wiki"

// Connector indexes one wiki space.
type Connector struct {
	sourceID string
	cfg      *Config
	client   *Client
}

var _ driven.Connector = (*Connector)(nil)

// New creates a wiki connector from source configuration.
func New(source domain.Source) (*Connector, error) {
	cfg, err := ParseConfig(source)
	if err != nil {
		return nil, err
	}

	return &Connector{
		sourceID: source.ID,
		cfg:      cfg,
		client:   NewClient(cfg),
	}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceTypeWiki
}

// SourceID returns the configured source id.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns what this connector supports.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsIncremental: true,
		SupportsWatch:       false,
		EmitsDeletes:        false,
		Cursor:              driven.CursorTimestamp,
		Categories:          []string{categoryWiki},
	}
}

// Validate checks the credentials by fetching the configured space.
func (c *Connector) Validate(ctx context.Context) error {
	_, err := c.client.Space(ctx)
	return err
}

// ListChanged lists pages modified after the cursor time. The space is
// always listed in full; the cursor filters which pages are fetched.
func (c *Connector) ListChanged(ctx context.Context, cursor string) ([]domain.ChangeRef, string, error) {
	since := parseCursor(cursor)

	pages, err := c.client.ListPages(ctx)
	if err != nil {
		return nil, "", err
	}

	var refs []domain.ChangeRef
	for _, page := range pages {
		modified := page.Version.When
		if !since.IsZero() && !modified.After(since) {
			continue
		}
		refs = append(refs, domain.ChangeRef{
			ExternalID: page.ID,
			Kind:       domain.ChangeUpsert,
			Timestamp:  modified.UTC(),
			Category:   categoryWiki,
		})
	}

	return refs, "", nil
}

// Fetch retrieves one page by id with its storage-format body.
func (c *Connector) Fetch(ctx context.Context, externalID string) (*domain.RawItem, error) {
	if externalID == "" {
		return nil, fmt.Errorf("%w: empty page id", domain.ErrInvalidInput)
	}

	page, err := c.client.Page(ctx, externalID)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: page %s", domain.ErrNotFound, externalID)
		}
		return nil, err
	}

	return &domain.RawItem{
		SourceID:   c.sourceID,
		ExternalID: externalID,
		URI:        c.pageURL(page),
		MIMEType:   "text/html",
		Payload:    []byte(page.Body.Storage.Value),
		Metadata: map[string]any{
			"title":       page.Title,
			"space":       c.cfg.Space,
			"version":     page.Version.Number,
			"modified_at": page.Version.When.UTC(),
		},
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Close releases resources.
func (c *Connector) Close() error {
	return nil
}

// pageURL builds the browser URL for a page. The API reports a webui
// link relative to the instance root; older instances may omit it.
func (c *Connector) pageURL(page *Page) string {
	if page.Links.WebUI != "" {
		return c.cfg.BaseURL + page.Links.WebUI
	}
	return fmt.Sprintf("%s/pages/viewpage.action?pageId=%s", c.cfg.BaseURL, page.ID)
}

// parseCursor reads a timestamp cursor, treating anything malformed as
// the beginning of time.
func parseCursor(cursor string) time.Time {
	if cursor == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		return time.Time{}
	}
	return t
}
