package drive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

// categoryDoc is the content category every file carries.
const categoryDoc = "doc"

// Drive allows 10 requests per second per user; stay under it.
const (
	requestsPerSecond = 8
	burstSize         = 10
)

// fileFields are the file attributes requested from every endpoint.
const fileFields = "id, name, mimeType, size, modifiedTime, trashed, webViewLink, parents"

// Connector indexes one Google Drive, or one folder of it.
type Connector struct {
	sourceID string
	cfg      *Config
	limiter  *rate.Limiter

	mu  sync.Mutex
	svc *drive.Service
}

var _ driven.Connector = (*Connector)(nil)

// New creates a Drive connector from source configuration. The API
// service is created lazily on first use.
func New(source domain.Source) (*Connector, error) {
	cfg, err := ParseConfig(source)
	if err != nil {
		return nil, err
	}

	return &Connector{
		sourceID: source.ID,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize),
	}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceTypeDrive
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
		EmitsDeletes:        true,
		Cursor:              driven.CursorToken,
		Categories:          []string{categoryDoc},
	}
}

// Validate checks the token by fetching the account profile.
func (c *Connector) Validate(ctx context.Context) error {
	svc, err := c.ensureService(ctx)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := svc.About.Get().Fields("user").Context(ctx).Do(); err != nil {
		return fmt.Errorf("verify drive access: %w", err)
	}
	return nil
}

// ListChanged lists changed files. An empty cursor does a full listing
// and captures a start page token; afterwards the change feed is
// replayed from the token, which also reports removals.
func (c *Connector) ListChanged(ctx context.Context, cursor string) ([]domain.ChangeRef, string, error) {
	cur, err := DecodeCursor(cursor)
	if err != nil {
		// A foreign or corrupt cursor falls back to a full listing.
		cur = NewCursor()
	}

	svc, err := c.ensureService(ctx)
	if err != nil {
		return nil, "", err
	}

	if cur.IsEmpty() {
		return c.listFull(ctx, svc)
	}

	refs, next, err := c.listChanges(ctx, svc, cur.StartPageToken)
	if IsPageTokenExpired(err) {
		// The feed no longer remembers our position.
		return c.listFull(ctx, svc)
	}
	if err != nil {
		return nil, "", err
	}
	return refs, next, nil
}

// Fetch retrieves one file by id, exporting Workspace documents.
func (c *Connector) Fetch(ctx context.Context, externalID string) (*domain.RawItem, error) {
	if externalID == "" {
		return nil, fmt.Errorf("%w: empty file id", domain.ErrInvalidInput)
	}

	svc, err := c.ensureService(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	file, err := svc.Files.Get(externalID).Fields(googleapi.Field(fileFields)).Context(ctx).Do()
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, externalID)
		}
		return nil, fmt.Errorf("fetch file %s: %w", externalID, err)
	}
	if file.Trashed {
		return nil, fmt.Errorf("%w: file %s is trashed", domain.ErrNotFound, externalID)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	payload, mimeType, err := fetchPayload(ctx, svc, file)
	if err != nil {
		return nil, err
	}

	return &domain.RawItem{
		SourceID:   c.sourceID,
		ExternalID: externalID,
		URI:        fileURL(file),
		MIMEType:   mimeType,
		Payload:    payload,
		Metadata: map[string]any{
			"file_name":   file.Name,
			"drive_mime":  file.MimeType,
			"size":        file.Size,
			"modified_at": parseModifiedTime(file.ModifiedTime),
		},
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Close releases resources.
func (c *Connector) Close() error {
	return nil
}

// listFull lists every indexable file. The start page token is taken
// before listing, so changes made while the listing runs replay on the
// next incremental sync.
func (c *Connector) listFull(ctx context.Context, svc *drive.Service) ([]domain.ChangeRef, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	start, err := svc.Changes.GetStartPageToken().Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("get start page token: %w", err)
	}

	query := "trashed = false"
	if c.cfg.FolderID != "" {
		query = fmt.Sprintf("%s and '%s' in parents", query, c.cfg.FolderID)
	}

	var refs []domain.ChangeRef
	pageToken := ""
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}

		call := svc.Files.List().
			Q(query).
			PageSize(c.cfg.PageSize).
			Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")")).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return nil, "", fmt.Errorf("list files: %w", err)
		}

		for _, file := range list.Files {
			if shouldIndex(file, c.cfg) {
				refs = append(refs, upsertRef(file))
			}
		}

		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}

	next := NewCursor()
	next.StartPageToken = start.StartPageToken
	return refs, next.Encode(), nil
}

// listChanges replays the change feed from a page token.
func (c *Connector) listChanges(ctx context.Context, svc *drive.Service, pageToken string) ([]domain.ChangeRef, string, error) {
	var refs []domain.ChangeRef
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}

		list, err := svc.Changes.List(pageToken).
			PageSize(c.cfg.PageSize).
			IncludeRemoved(true).
			Fields(googleapi.Field("nextPageToken, newStartPageToken, changes(fileId, removed, file(" + fileFields + "))")).
			Context(ctx).
			Do()
		if err != nil {
			return nil, "", fmt.Errorf("list changes: %w", err)
		}

		for _, change := range list.Changes {
			if change.FileId == "" {
				continue
			}
			if change.Removed || (change.File != nil && change.File.Trashed) {
				refs = append(refs, domain.ChangeRef{
					ExternalID: change.FileId,
					Kind:       domain.ChangeDelete,
					Category:   categoryDoc,
				})
				continue
			}
			if change.File != nil && shouldIndex(change.File, c.cfg) {
				refs = append(refs, upsertRef(change.File))
			}
		}

		// The final page carries the new start token.
		if list.NewStartPageToken != "" {
			next := NewCursor()
			next.StartPageToken = list.NewStartPageToken
			return refs, next.Encode(), nil
		}
		if list.NextPageToken == "" {
			next := NewCursor()
			next.StartPageToken = pageToken
			return refs, next.Encode(), nil
		}
		pageToken = list.NextPageToken
	}
}

// ensureService creates the Drive API service on first use.
func (c *Connector) ensureService(ctx context.Context) (*drive.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.svc != nil {
		return c.svc, nil
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.cfg.Token})
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	c.svc = svc
	return svc, nil
}

func upsertRef(file *drive.File) domain.ChangeRef {
	return domain.ChangeRef{
		ExternalID: file.Id,
		Kind:       domain.ChangeUpsert,
		Timestamp:  parseModifiedTime(file.ModifiedTime),
		Category:   categoryDoc,
	}
}

func fileURL(file *drive.File) string {
	if file.WebViewLink != "" {
		return file.WebViewLink
	}
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", file.Id)
}

// parseModifiedTime reads Drive's RFC 3339 modification time, zero when
// absent or malformed.
func parseModifiedTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
