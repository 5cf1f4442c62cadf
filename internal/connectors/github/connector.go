package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/normalisers/tracker"
)

// Content categories this connector emits.
const (
	categoryDoc   = "doc"
	categoryWiki  = "wiki"
	categoryIssue = "issue"
)

// wikiBranch is the branch wiki git repositories use.
const wikiBranch = "master"

// Connector indexes one GitHub repository.
type Connector struct {
	sourceID   string
	categories []string
	cfg        *Config
	client     *Client

	mu     sync.Mutex
	repo   *gh.Repository
	branch string
	blobs  map[string]string // external id -> blob SHA, filled by listing
}

var _ driven.Connector = (*Connector)(nil)

// New creates a GitHub connector from source configuration.
func New(source domain.Source) (*Connector, error) {
	cfg, err := ParseConfig(source)
	if err != nil {
		return nil, err
	}

	return &Connector{
		sourceID:   source.ID,
		categories: source.Categories,
		cfg:        cfg,
		client:     NewClient(cfg.Token),
		blobs:      make(map[string]string),
	}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceTypeGitHub
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
		Cursor:              driven.CursorToken,
		Categories:          []string{categoryDoc, categoryWiki, categoryIssue},
	}
}

// Validate checks the token and that the repository is reachable.
func (c *Connector) Validate(ctx context.Context) error {
	if err := c.client.ValidateCredentials(ctx); err != nil {
		return err
	}
	_, err := c.repository(ctx)
	return err
}

// ListChanged lists changed items across the enabled categories. The
// cursor is a composite token; categories whose upstream state is
// unchanged list nothing.
func (c *Connector) ListChanged(ctx context.Context, cursor string) ([]domain.ChangeRef, string, error) {
	cur, err := DecodeCursor(cursor)
	if err != nil {
		// A foreign or corrupt cursor falls back to a full listing.
		cur = NewCursor()
	}
	next := NewCursor()

	var refs []domain.ChangeRef

	if c.emits(categoryDoc) {
		docRefs, treeSHA, err := c.listDocs(ctx, cur.TreeSHA)
		if err != nil {
			return nil, "", fmt.Errorf("list repo files: %w", err)
		}
		refs = append(refs, docRefs...)
		next.TreeSHA = treeSHA
	}

	if c.emits(categoryWiki) {
		wikiRefs, wikiSHA, err := c.listWiki(ctx, cur.WikiSHA)
		if err != nil && !errors.Is(err, ErrWikiDisabled) {
			return nil, "", fmt.Errorf("list wiki pages: %w", err)
		}
		refs = append(refs, wikiRefs...)
		next.WikiSHA = wikiSHA
	}

	if c.emits(categoryIssue) {
		issueRefs, since, err := c.listIssues(ctx, cur.IssuesSince)
		if err != nil {
			return nil, "", fmt.Errorf("list issues: %w", err)
		}
		refs = append(refs, issueRefs...)
		next.IssuesSince = since
	}

	return refs, next.Encode(), nil
}

// Fetch retrieves one item by its category-prefixed external id.
func (c *Connector) Fetch(ctx context.Context, externalID string) (*domain.RawItem, error) {
	category, rest, ok := strings.Cut(externalID, "/")
	if !ok || rest == "" {
		return nil, fmt.Errorf("%w: external id %q", domain.ErrInvalidInput, externalID)
	}

	switch category {
	case categoryDoc:
		return c.fetchDoc(ctx, externalID, rest)
	case categoryWiki:
		return c.fetchWikiPage(ctx, externalID, rest)
	case categoryIssue:
		return c.fetchIssue(ctx, externalID, rest)
	default:
		return nil, fmt.Errorf("%w: external id %q", domain.ErrInvalidInput, externalID)
	}
}

// Close releases resources.
func (c *Connector) Close() error {
	return nil
}

// listDocs lists indexable files from the default branch tree. A tree
// SHA matching the cursor short-circuits to an empty listing.
func (c *Connector) listDocs(ctx context.Context, prevSHA string) ([]domain.ChangeRef, string, error) {
	branch, err := c.defaultBranch(ctx)
	if err != nil {
		return nil, "", err
	}

	tree, err := c.client.Tree(ctx, c.cfg.Owner, c.cfg.Repo, branch)
	if err != nil {
		return nil, "", err
	}

	sha := tree.GetSHA()
	if sha != "" && sha == prevSHA {
		return nil, sha, nil
	}

	var refs []domain.ChangeRef
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path := entry.GetPath()
		if isBinaryExtension(path) || entry.GetSize() > maxFileBytes {
			continue
		}
		if !matchesPatterns(path, c.cfg.FilePatterns) {
			continue
		}

		id := categoryDoc + "/" + path
		c.rememberBlob(id, entry.GetSHA())
		refs = append(refs, domain.ChangeRef{
			ExternalID: id,
			Kind:       domain.ChangeUpsert,
			Category:   categoryDoc,
		})
	}

	return refs, sha, nil
}

// listWiki lists markdown pages from the wiki git repository.
func (c *Connector) listWiki(ctx context.Context, prevSHA string) ([]domain.ChangeRef, string, error) {
	repo, err := c.repository(ctx)
	if err != nil {
		return nil, "", err
	}
	if !repo.GetHasWiki() {
		return nil, "", ErrWikiDisabled
	}

	tree, err := c.client.Tree(ctx, c.cfg.Owner, c.cfg.Repo+".wiki", wikiBranch)
	if err != nil {
		// An enabled wiki with no pages has no git repository yet.
		if IsNotFound(err) || IsForbidden(err) {
			return nil, "", ErrWikiDisabled
		}
		return nil, "", err
	}

	sha := tree.GetSHA()
	if sha != "" && sha == prevSHA {
		return nil, sha, nil
	}

	var refs []domain.ChangeRef
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path := entry.GetPath()
		if !strings.HasSuffix(path, ".md") {
			continue
		}

		id := categoryWiki + "/" + path
		c.rememberBlob(id, entry.GetSHA())
		refs = append(refs, domain.ChangeRef{
			ExternalID: id,
			Kind:       domain.ChangeUpsert,
			Category:   categoryWiki,
		})
	}

	return refs, sha, nil
}

// listIssues lists issues updated since the watermark, excluding pull
// requests. Returns the advanced watermark.
func (c *Connector) listIssues(ctx context.Context, since time.Time) ([]domain.ChangeRef, time.Time, error) {
	repo, err := c.repository(ctx)
	if err != nil {
		return nil, since, err
	}
	if !repo.GetHasIssues() {
		return nil, since, nil
	}

	issues, err := c.client.IssuesSince(ctx, c.cfg.Owner, c.cfg.Repo, since)
	if err != nil {
		return nil, since, err
	}

	newest := since
	var refs []domain.ChangeRef
	for _, issue := range issues {
		// Pull requests show up in the issues endpoint too.
		if issue.IsPullRequest() {
			continue
		}

		updated := issue.GetUpdatedAt().Time
		if updated.After(newest) {
			newest = updated
		}
		refs = append(refs, domain.ChangeRef{
			ExternalID: categoryIssue + "/" + strconv.Itoa(issue.GetNumber()),
			Kind:       domain.ChangeUpsert,
			Timestamp:  updated.UTC(),
			Category:   categoryIssue,
		})
	}

	return refs, newest, nil
}

// fetchDoc retrieves one repository file by path.
func (c *Connector) fetchDoc(ctx context.Context, externalID, path string) (*domain.RawItem, error) {
	sha, ok := c.blobSHA(externalID)
	if !ok {
		// Fetch without a prior listing in this process; resolve the
		// path through a fresh tree.
		if _, _, err := c.listDocs(ctx, ""); err != nil {
			return nil, err
		}
		if sha, ok = c.blobSHA(externalID); !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
	}

	payload, err := c.client.Blob(ctx, c.cfg.Owner, c.cfg.Repo, sha)
	if err != nil {
		return nil, err
	}

	branch, err := c.defaultBranch(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.RawItem{
		SourceID:   c.sourceID,
		ExternalID: externalID,
		URI:        fmt.Sprintf("https://github.com/%s/blob/%s/%s", c.cfg.FullName(), branch, path),
		MIMEType:   detectFileMIMEType(path),
		Payload:    payload,
		Metadata: map[string]any{
			"repo":     c.cfg.FullName(),
			"branch":   branch,
			"path":     path,
			"blob_sha": sha,
		},
		FetchedAt: time.Now().UTC(),
	}, nil
}

// fetchWikiPage retrieves one wiki page by file path.
func (c *Connector) fetchWikiPage(ctx context.Context, externalID, path string) (*domain.RawItem, error) {
	sha, ok := c.blobSHA(externalID)
	if !ok {
		if _, _, err := c.listWiki(ctx, ""); err != nil {
			return nil, err
		}
		if sha, ok = c.blobSHA(externalID); !ok {
			return nil, fmt.Errorf("%w: wiki page %s", domain.ErrNotFound, path)
		}
	}

	payload, err := c.client.Blob(ctx, c.cfg.Owner, c.cfg.Repo+".wiki", sha)
	if err != nil {
		return nil, err
	}

	page := strings.TrimSuffix(path, ".md")
	return &domain.RawItem{
		SourceID:   c.sourceID,
		ExternalID: externalID,
		URI:        fmt.Sprintf("https://github.com/%s/wiki/%s", c.cfg.FullName(), page),
		MIMEType:   "text/markdown",
		Payload:    payload,
		Metadata: map[string]any{
			"repo":     c.cfg.FullName(),
			"page":     page,
			"blob_sha": sha,
		},
		FetchedAt: time.Now().UTC(),
	}, nil
}

// fetchIssue retrieves one issue with its comment thread.
func (c *Connector) fetchIssue(ctx context.Context, externalID, rest string) (*domain.RawItem, error) {
	number, err := strconv.Atoi(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: issue number %q", domain.ErrInvalidInput, rest)
	}

	issue, err := c.client.Issue(ctx, c.cfg.Owner, c.cfg.Repo, number)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: issue %d", domain.ErrNotFound, number)
		}
		return nil, err
	}

	var comments []*gh.IssueComment
	if issue.GetComments() > 0 {
		if comments, err = c.client.IssueComments(ctx, c.cfg.Owner, c.cfg.Repo, number); err != nil {
			return nil, err
		}
	}

	payload, err := json.Marshal(issuePayload(issue, comments))
	if err != nil {
		return nil, fmt.Errorf("encode issue %d: %w", number, err)
	}

	return &domain.RawItem{
		SourceID:   c.sourceID,
		ExternalID: externalID,
		URI:        issue.GetHTMLURL(),
		MIMEType:   tracker.MIMETypeIssue,
		Payload:    payload,
		Metadata: map[string]any{
			"repo":        c.cfg.FullName(),
			"number":      number,
			"state":       issue.GetState(),
			"modified_at": issue.GetUpdatedAt().Time.UTC(),
		},
		FetchedAt: time.Now().UTC(),
	}, nil
}

// emits reports whether the source's category filter wants a category.
func (c *Connector) emits(category string) bool {
	if len(c.categories) == 0 {
		return true
	}
	for _, want := range c.categories {
		if strings.EqualFold(want, category) {
			return true
		}
	}
	return false
}

// repository fetches and caches repository metadata.
func (c *Connector) repository(ctx context.Context) (*gh.Repository, error) {
	c.mu.Lock()
	cached := c.repo
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	repo, err := c.client.Repository(ctx, c.cfg.Owner, c.cfg.Repo)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.repo = repo
	c.mu.Unlock()
	return repo, nil
}

// defaultBranch resolves and caches the branch used for file listing.
func (c *Connector) defaultBranch(ctx context.Context) (string, error) {
	if c.cfg.Branch != "" {
		return c.cfg.Branch, nil
	}

	c.mu.Lock()
	cached := c.branch
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	repo, err := c.repository(ctx)
	if err != nil {
		return "", err
	}
	branch := repo.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}

	c.mu.Lock()
	c.branch = branch
	c.mu.Unlock()
	return branch, nil
}

func (c *Connector) rememberBlob(externalID, sha string) {
	c.mu.Lock()
	c.blobs[externalID] = sha
	c.mu.Unlock()
}

func (c *Connector) blobSHA(externalID string) (string, bool) {
	c.mu.Lock()
	sha, ok := c.blobs[externalID]
	c.mu.Unlock()
	return sha, ok
}
