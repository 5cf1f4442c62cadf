package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the HTTP timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// requestRate is the proactive throttle in requests per second.
	// Confluence has no published quota; this keeps a busy sync polite.
	requestRate = 5

	// pageSize is the number of results requested per listing page.
	pageSize = 50
)

// APIError represents a wiki REST error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wiki: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401
	}
	return false
}

// PageVersion carries the version number and modification time of a page.
type PageVersion struct {
	Number int       `json:"number"`
	When   time.Time `json:"when"`
}

// PageSummary is one entry of a content listing.
type PageSummary struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Version PageVersion `json:"version"`
}

// Page is the full representation of one wiki page.
type Page struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Version PageVersion `json:"version"`
	Body    struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

// Space describes a wiki space.
type Space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type contentList struct {
	Results []PageSummary `json:"results"`
	Start   int           `json:"start"`
	Limit   int           `json:"limit"`
	Size    int           `json:"size"`
}

type errorBody struct {
	Message string `json:"message"`
}

// Client is a minimal Confluence REST client with proactive throttling.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a wiki API client.
func NewClient(cfg *Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(requestRate), 1),
	}
}

// Space fetches the configured space, verifying it exists and the
// credentials can read it.
func (c *Client) Space(ctx context.Context) (*Space, error) {
	var space Space
	if err := c.get(ctx, "/rest/api/space/"+url.PathEscape(c.cfg.Space), nil, &space); err != nil {
		return nil, fmt.Errorf("fetch space %s: %w", c.cfg.Space, err)
	}
	return &space, nil
}

// ListPages lists every current page in the space with its version.
func (c *Client) ListPages(ctx context.Context) ([]PageSummary, error) {
	var pages []PageSummary

	start := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		query := url.Values{
			"spaceKey": {c.cfg.Space},
			"type":     {"page"},
			"status":   {"current"},
			"expand":   {"version"},
			"limit":    {strconv.Itoa(pageSize)},
			"start":    {strconv.Itoa(start)},
		}

		var list contentList
		if err := c.get(ctx, "/rest/api/content", query, &list); err != nil {
			return nil, fmt.Errorf("list pages: %w", err)
		}

		pages = append(pages, list.Results...)
		if len(list.Results) < pageSize {
			return pages, nil
		}
		start += pageSize
	}
}

// Page fetches one page with its storage-format body.
func (c *Client) Page(ctx context.Context, id string) (*Page, error) {
	query := url.Values{"expand": {"body.storage,version"}}

	var page Page
	if err := c.get(ctx, "/rest/api/content/"+url.PathEscape(id), query, &page); err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", id, err)
	}
	return &page, nil
}

// get performs an authenticated GET and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorise(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorise(req *http.Request) {
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		return
	}
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
}

// apiError builds an APIError from a non-200 response, pulling the
// message out of the JSON error body when one is present.
func (c *Client) apiError(resp *http.Response) error {
	message := http.StatusText(resp.StatusCode)

	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		message = body.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		URL:        resp.Request.URL.String(),
	}
}
