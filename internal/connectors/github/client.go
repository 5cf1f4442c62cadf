package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

// DefaultTimeout is the HTTP request timeout for API calls.
const DefaultTimeout = 30 * time.Second

// Client wraps the go-github client with rate limiting and error
// translation. Every call waits on the limiter first and feeds the
// response headers back into it.
type Client struct {
	gh      *gh.Client
	limiter *RateLimiter
}

// NewClient creates a GitHub API client with a static access token.
// Works for both PATs and OAuth access tokens.
func NewClient(token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = DefaultTimeout

	return &Client{
		gh:      gh.NewClient(httpClient),
		limiter: NewRateLimiter(),
	}
}

// GitHub returns the underlying go-github client.
func (c *Client) GitHub() *gh.Client {
	return c.gh
}

// RateLimiter returns the rate limiter.
func (c *Client) RateLimiter() *RateLimiter {
	return c.limiter
}

// ValidateCredentials checks the token by fetching the authenticated user.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	_, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return c.wrapError(err, "validate credentials")
	}

	c.updateRateLimitFromResponse(resp)
	return nil
}

// Repository fetches repository metadata (default branch, flags).
func (c *Client) Repository(ctx context.Context, owner, repo string) (*gh.Repository, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	repository, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, c.wrapError(err, "get repo")
	}

	c.updateRateLimitFromResponse(resp)
	return repository, nil
}

// Tree fetches the entire tree for a repository recursively, which
// lists every file path and blob SHA in one API call.
func (c *Client) Tree(ctx context.Context, owner, repo, ref string) (*gh.Tree, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	tree, resp, err := c.gh.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, c.wrapError(err, "get tree")
	}

	c.updateRateLimitFromResponse(resp)
	return tree, nil
}

// Blob fetches and decodes a blob's content by SHA.
func (c *Client) Blob(ctx context.Context, owner, repo, sha string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	blob, resp, err := c.gh.Git.GetBlob(ctx, owner, repo, sha)
	if err != nil {
		return nil, c.wrapError(err, "get blob")
	}
	c.updateRateLimitFromResponse(resp)

	if blob.GetEncoding() == "base64" {
		// The API wraps base64 content with newlines.
		content := strings.ReplaceAll(blob.GetContent(), "\n", "")
		decoded, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("decode blob %s: %w", sha, err)
		}
		return decoded, nil
	}
	return []byte(blob.GetContent()), nil
}

// IssuesSince lists all issues updated since the given time, oldest
// first, across every page. Pull requests are included by the API and
// filtered by the caller.
func (c *Client) IssuesSince(ctx context.Context, owner, repo string, since time.Time) ([]*gh.Issue, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "asc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	if !since.IsZero() {
		opts.Since = since
	}

	var allIssues []*gh.Issue
	for {
		select {
		case <-ctx.Done():
			return allIssues, ctx.Err()
		default:
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, c.wrapError(err, "list issues")
		}

		c.updateRateLimitFromResponse(resp)
		allIssues = append(allIssues, issues...)

		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	return allIssues, nil
}

// Issue fetches a single issue by number.
func (c *Client) Issue(ctx context.Context, owner, repo string, number int) (*gh.Issue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	issue, resp, err := c.gh.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, c.wrapError(err, "get issue")
	}

	c.updateRateLimitFromResponse(resp)
	return issue, nil
}

// IssueComments lists all comments on an issue across every page.
func (c *Client) IssueComments(ctx context.Context, owner, repo string, number int) ([]*gh.IssueComment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var allComments []*gh.IssueComment
	for {
		select {
		case <-ctx.Done():
			return allComments, ctx.Err()
		default:
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, c.wrapError(err, "list comments")
		}

		c.updateRateLimitFromResponse(resp)
		allComments = append(allComments, comments...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allComments, nil
}

// updateRateLimitFromResponse feeds GitHub's headers to the limiter.
func (c *Client) updateRateLimitFromResponse(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.limiter.UpdateFromResponse(resp.Response)
}

// wrapError converts go-github errors to this package's error types.
func (c *Client) wrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		return &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
			URL:        ghErr.Response.Request.URL.String(),
		}
	}

	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &RateLimitError{
			ResetAt:   c.limiter.ResetTime(),
			Remaining: c.limiter.Remaining(),
			Limit:     c.limiter.Limit(),
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}
