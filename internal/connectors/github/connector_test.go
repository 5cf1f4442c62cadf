package github

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

func testSource(extra map[string]string) domain.Source {
	cfg := map[string]string{
		"owner": "custodia-labs",
		"repo":  "korpus",
		"token": "ghp_test_token",
	}
	for k, v := range extra {
		cfg[k] = v
	}
	return domain.Source{
		ID:     "src-github",
		Type:   domain.SourceTypeGitHub,
		Name:   "korpus repo",
		Config: cfg,
	}
}

func TestParseConfig(t *testing.T) {
	t.Run("parses a complete config", func(t *testing.T) {
		cfg, err := ParseConfig(testSource(map[string]string{
			"branch":        "develop",
			"file_patterns": "*.md, docs/*",
		}))
		require.NoError(t, err)

		assert.Equal(t, "custodia-labs", cfg.Owner)
		assert.Equal(t, "korpus", cfg.Repo)
		assert.Equal(t, "ghp_test_token", cfg.Token)
		assert.Equal(t, "develop", cfg.Branch)
		assert.Equal(t, []string{"*.md", "docs/*"}, cfg.FilePatterns)
		assert.Equal(t, "custodia-labs/korpus", cfg.FullName())
	})

	t.Run("requires owner and repo", func(t *testing.T) {
		source := testSource(nil)
		source.Config["owner"] = ""

		_, err := ParseConfig(source)
		require.ErrorIs(t, err, domain.ErrInvalidInput)

		source = testSource(nil)
		source.Config["repo"] = "  "

		_, err = ParseConfig(source)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("requires a token", func(t *testing.T) {
		source := testSource(nil)
		delete(source.Config, "token")

		_, err := ParseConfig(source)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("trims whitespace", func(t *testing.T) {
		cfg, err := ParseConfig(testSource(map[string]string{
			"owner": " custodia-labs ",
			"repo":  " korpus ",
		}))
		require.NoError(t, err)

		assert.Equal(t, "custodia-labs", cfg.Owner)
		assert.Equal(t, "korpus", cfg.Repo)
	})
}

func TestNew(t *testing.T) {
	t.Run("creates a connector for a valid source", func(t *testing.T) {
		conn, err := New(testSource(nil))
		require.NoError(t, err)

		assert.Equal(t, domain.SourceTypeGitHub, conn.Type())
		assert.Equal(t, "src-github", conn.SourceID())
		require.NoError(t, conn.Close())
	})

	t.Run("rejects an incomplete source", func(t *testing.T) {
		source := testSource(nil)
		source.Config = map[string]string{"owner": "custodia-labs"}

		_, err := New(source)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestConnector_Capabilities(t *testing.T) {
	conn, err := New(testSource(nil))
	require.NoError(t, err)

	caps := conn.Capabilities()
	assert.True(t, caps.SupportsIncremental)
	assert.False(t, caps.SupportsWatch)
	assert.False(t, caps.EmitsDeletes, "removals are reconciled by full sync")
	assert.Equal(t, driven.CursorToken, caps.Cursor)
	assert.Equal(t, []string{"doc", "wiki", "issue"}, caps.Categories)
}

func TestConnector_Fetch_rejectsMalformedIDs(t *testing.T) {
	conn, err := New(testSource(nil))
	require.NoError(t, err)

	// None of these reach the API.
	for _, id := range []string{"", "bogus", "doc/", "issue/not-a-number", "pr/42"} {
		_, err := conn.Fetch(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "id %q", id)
	}
}

func TestConnector_emits(t *testing.T) {
	t.Run("empty filter emits everything", func(t *testing.T) {
		conn, err := New(testSource(nil))
		require.NoError(t, err)

		assert.True(t, conn.emits("doc"))
		assert.True(t, conn.emits("wiki"))
		assert.True(t, conn.emits("issue"))
	})

	t.Run("filter restricts categories case-insensitively", func(t *testing.T) {
		source := testSource(nil)
		source.Categories = []string{"Doc", "issue"}

		conn, err := New(source)
		require.NoError(t, err)

		assert.True(t, conn.emits("doc"))
		assert.False(t, conn.emits("wiki"))
		assert.True(t, conn.emits("issue"))
	})
}

func TestCursor(t *testing.T) {
	t.Run("round-trips through encode and decode", func(t *testing.T) {
		since := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		cursor := &Cursor{
			Version:     CursorVersion,
			TreeSHA:     "abc123",
			WikiSHA:     "def456",
			IssuesSince: since,
		}

		decoded, err := DecodeCursor(cursor.Encode())
		require.NoError(t, err)

		assert.Equal(t, CursorVersion, decoded.Version)
		assert.Equal(t, "abc123", decoded.TreeSHA)
		assert.Equal(t, "def456", decoded.WikiSHA)
		assert.True(t, decoded.IssuesSince.Equal(since))
	})

	t.Run("empty string decodes to an empty cursor", func(t *testing.T) {
		cursor, err := DecodeCursor("")
		require.NoError(t, err)

		assert.Equal(t, CursorVersion, cursor.Version)
		assert.Empty(t, cursor.TreeSHA)
		assert.Empty(t, cursor.WikiSHA)
		assert.True(t, cursor.IssuesSince.IsZero())
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := DecodeCursor("not base64!!!")
		require.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := DecodeCursor("bm90IGpzb24=")
		require.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("nil cursor encodes to empty string", func(t *testing.T) {
		var cursor *Cursor
		assert.Empty(t, cursor.Encode())
	})
}

func TestDetectFileMIMEType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"README.md", "text/markdown"},
		{"docs/guide.markdown", "text/markdown"},
		{"main.go", "text/x-go"},
		{"scripts/setup.py", "text/x-python"},
		{"lib.rs", "text/x-rust"},
		{"app.ts", "text/typescript"},
		{"config.yaml", "text/yaml"},
		{"config.toml", "text/toml"},
		{"schema.sql", "text/x-sql"},
		{"index.html", "text/html"},
		{"data.json", "application/json"},
		{"LICENSE", "text/plain"},
		{"notes.unknownext", "text/plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, detectFileMIMEType(tt.path), "path %s", tt.path)
	}
}

func TestMatchesPatterns(t *testing.T) {
	t.Run("empty patterns match everything", func(t *testing.T) {
		assert.True(t, matchesPatterns("any/file.bin", nil))
	})

	t.Run("matches against the base name", func(t *testing.T) {
		assert.True(t, matchesPatterns("docs/guide.md", []string{"*.md"}))
		assert.False(t, matchesPatterns("docs/guide.txt", []string{"*.md"}))
	})

	t.Run("matches against the full path", func(t *testing.T) {
		assert.True(t, matchesPatterns("docs/guide", []string{"docs/*"}))
		assert.False(t, matchesPatterns("src/guide", []string{"docs/*"}))
	})
}

func TestIsBinaryExtension(t *testing.T) {
	assert.True(t, isBinaryExtension("logo.png"))
	assert.True(t, isBinaryExtension("report.pdf"))
	assert.True(t, isBinaryExtension("archive.tar"))
	assert.True(t, isBinaryExtension("spec.DOCX"))
	assert.False(t, isBinaryExtension("README.md"))
	assert.False(t, isBinaryExtension("main.go"))
	assert.False(t, isBinaryExtension("Makefile"))
}

func TestRateLimiter(t *testing.T) {
	t.Run("starts with full quota", func(t *testing.T) {
		limiter := NewRateLimiter()

		assert.Equal(t, GitHubRateLimit, limiter.Remaining())
		assert.Equal(t, GitHubRateLimit, limiter.Limit())
		assert.True(t, limiter.ResetTime().IsZero())
	})

	t.Run("updates state from response headers", func(t *testing.T) {
		limiter := NewRateLimiter()
		reset := time.Now().Add(30 * time.Minute).Unix()

		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set(HeaderRateRemaining, "4200")
		resp.Header.Set(HeaderRateLimit, "5000")
		resp.Header.Set(HeaderRateReset, strconv.FormatInt(reset, 10))
		limiter.UpdateFromResponse(resp)

		assert.Equal(t, 4200, limiter.Remaining())
		assert.Equal(t, 5000, limiter.Limit())
		assert.Equal(t, reset, limiter.ResetTime().Unix())
	})

	t.Run("ignores a nil response and garbage headers", func(t *testing.T) {
		limiter := NewRateLimiter()
		limiter.UpdateFromResponse(nil)

		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set(HeaderRateRemaining, "many")
		limiter.UpdateFromResponse(resp)

		assert.Equal(t, GitHubRateLimit, limiter.Remaining())
	})

	t.Run("allows requests while quota is healthy", func(t *testing.T) {
		limiter := NewRateLimiter()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		require.NoError(t, limiter.Wait(ctx))
	})

	t.Run("parks near exhaustion until cancelled", func(t *testing.T) {
		limiter := NewRateLimiter()

		resp := &http.Response{Header: http.Header{}}
		resp.Header.Set(HeaderRateRemaining, "3")
		resp.Header.Set(HeaderRateReset, strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
		limiter.UpdateFromResponse(resp)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := limiter.Wait(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClient_WrapError(t *testing.T) {
	client := NewClient("token")
	testURL, err := url.Parse("https://api.github.com/repos/custodia-labs/korpus")
	require.NoError(t, err)

	t.Run("converts API errors", func(t *testing.T) {
		ghErr := &gh.ErrorResponse{
			Response: &http.Response{
				StatusCode: http.StatusNotFound,
				Request:    &http.Request{URL: testURL},
			},
			Message: "Not Found",
		}

		wrapped := client.wrapError(ghErr, "fetch repository")

		var apiErr *APIError
		require.ErrorAs(t, wrapped, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, "Not Found", apiErr.Message)
		assert.True(t, IsNotFound(wrapped))
		assert.False(t, IsUnauthorized(wrapped))
	})

	t.Run("converts rate limit errors", func(t *testing.T) {
		wrapped := client.wrapError(&gh.RateLimitError{}, "list issues")

		var rateErr *RateLimitError
		require.ErrorAs(t, wrapped, &rateErr)
		assert.True(t, IsRateLimited(wrapped))
	})

	t.Run("wraps other errors with the operation", func(t *testing.T) {
		wrapped := client.wrapError(context.DeadlineExceeded, "fetch blob")

		require.ErrorIs(t, wrapped, context.DeadlineExceeded)
		assert.Contains(t, wrapped.Error(), "fetch blob")
	})

	t.Run("passes nil through", func(t *testing.T) {
		assert.NoError(t, client.wrapError(nil, "anything"))
	})
}

func TestIssuePayload(t *testing.T) {
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 5, 10, 14, 30, 0, 0, time.UTC)

	issue := &gh.Issue{
		Number:    gh.Ptr(42),
		Title:     gh.Ptr("Sync stalls on large sources"),
		Body:      gh.Ptr("The run never finishes."),
		State:     gh.Ptr("open"),
		User:      &gh.User{Login: gh.Ptr("alice")},
		CreatedAt: &gh.Timestamp{Time: created},
		UpdatedAt: &gh.Timestamp{Time: updated},
		Labels: []*gh.Label{
			{Name: gh.Ptr("bug")},
			{Name: gh.Ptr("sync")},
		},
		Assignees: []*gh.User{{Login: gh.Ptr("bob")}},
		Milestone: &gh.Milestone{Title: gh.Ptr("v1.0")},
	}
	comments := []*gh.IssueComment{
		{
			User:      &gh.User{Login: gh.Ptr("carol")},
			Body:      gh.Ptr("Reproduced on my machine."),
			CreatedAt: &gh.Timestamp{Time: created.Add(time.Hour)},
		},
	}

	payload := issuePayload(issue, comments)

	assert.Equal(t, 42, payload.Number)
	assert.Equal(t, "Sync stalls on large sources", payload.Title)
	assert.Equal(t, "The run never finishes.", payload.Body)
	assert.Equal(t, "open", payload.State)
	assert.Equal(t, "alice", payload.Author)
	assert.True(t, payload.CreatedAt.Equal(created))
	assert.True(t, payload.UpdatedAt.Equal(updated))
	assert.Equal(t, []string{"bug", "sync"}, payload.Labels)
	assert.Equal(t, []string{"bob"}, payload.Assignees)
	assert.Equal(t, "v1.0", payload.Milestone)

	require.Len(t, payload.Comments, 1)
	assert.Equal(t, "carol", payload.Comments[0].Author)
	assert.Equal(t, "Reproduced on my machine.", payload.Comments[0].Body)
}

func TestIssuePayload_minimalIssue(t *testing.T) {
	payload := issuePayload(&gh.Issue{Number: gh.Ptr(7)}, nil)

	assert.Equal(t, 7, payload.Number)
	assert.Empty(t, payload.Author)
	assert.Empty(t, payload.Milestone)
	assert.Empty(t, payload.Comments)
}
