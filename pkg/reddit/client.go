package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAuthEndpoint = "https://www.reddit.com"
	defaultAPIEndpoint  = "https://oauth.reddit.com"

	// listingLimit is the per-request page size of the listing API. The
	// client chains listing pages internally up to PageCap so callers see
	// the documented single-call cap.
	listingLimit = 100

	tokenExpirySlack = 30 * time.Second
)

// Config configures the HTTP client.
type Config struct {
	// ClientID and ClientSecret are the script-app credentials.
	ClientID     string
	ClientSecret string

	// UserAgent identifies this client to the API. Required by the API
	// terms; requests without one are aggressively throttled.
	UserAgent string

	// AuthEndpoint and APIEndpoint override the API hosts. Used in tests
	// against a local fake; empty values use the public hosts.
	AuthEndpoint string
	APIEndpoint  string

	// HTTPClient overrides the underlying HTTP client. Nil uses a client
	// with a 30s timeout.
	HTTPClient *http.Client
}

// Client talks to the search API over HTTP with app-only OAuth.
//
// Client is not safe for concurrent use; the extraction loop issues one
// call at a time.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	authEndpoint string
	apiEndpoint  string

	token       string
	tokenExpiry time.Time
}

// NewClient creates a client. Returns an error if credentials or the user
// agent are missing.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("reddit client: %w: client id and secret are required", ErrInvalidCredentials)
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, fmt.Errorf("reddit client: user agent is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	authEndpoint := cfg.AuthEndpoint
	if authEndpoint == "" {
		authEndpoint = defaultAuthEndpoint
	}
	apiEndpoint := cfg.APIEndpoint
	if apiEndpoint == "" {
		apiEndpoint = defaultAPIEndpoint
	}

	return &Client{
		cfg:          cfg,
		httpClient:   httpClient,
		authEndpoint: authEndpoint,
		apiEndpoint:  apiEndpoint,
	}, nil
}

// Search implements Searcher. It chains listing pages internally until
// PageCap posts are collected or the listing is exhausted.
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]Post, error) {
	if strings.TrimSpace(opts.Subreddit) == "" {
		return nil, &APIError{Op: "Search", Err: fmt.Errorf("subreddit is required")}
	}

	var posts []Post
	after := ""
	for len(posts) < PageCap {
		page, nextAfter, err := c.searchPage(ctx, opts, after)
		if err != nil {
			return nil, err
		}
		for _, p := range page {
			if !opts.Before.IsZero() && !p.Created.Before(opts.Before) {
				continue
			}
			posts = append(posts, p)
			if len(posts) == PageCap {
				break
			}
		}
		if nextAfter == "" || len(page) == 0 {
			break
		}
		after = nextAfter
	}
	return posts, nil
}

// searchPage fetches one listing page.
func (c *Client) searchPage(ctx context.Context, opts SearchOptions, after string) ([]Post, string, error) {
	q := url.Values{}
	q.Set("q", buildQuery(opts))
	q.Set("restrict_sr", "1")
	q.Set("sort", "new")
	q.Set("syntax", "cloudsearch")
	q.Set("limit", fmt.Sprintf("%d", listingLimit))
	q.Set("raw_json", "1")
	if after != "" {
		q.Set("after", after)
	}

	endpoint := fmt.Sprintf("%s/r/%s/search?%s", c.apiEndpoint, url.PathEscape(opts.Subreddit), q.Encode())

	var body listingResponse
	if err := c.getJSON(ctx, "Search", opts.Subreddit, endpoint, &body); err != nil {
		return nil, "", err
	}

	posts := make([]Post, 0, len(body.Data.Children))
	for _, child := range body.Data.Children {
		posts = append(posts, child.Data.toPost())
	}
	return posts, body.Data.After, nil
}

// buildQuery renders the cloudsearch query with the upper time bound.
// "*" (all posts) becomes a bare timestamp range.
func buildQuery(opts SearchOptions) string {
	upper := time.Now().UTC().Unix()
	if !opts.Before.IsZero() {
		upper = opts.Before.UTC().Unix()
	}
	stamp := fmt.Sprintf("timestamp:0..%d", upper)

	query := strings.TrimSpace(opts.Query)
	if query == "" || query == "*" {
		return fmt.Sprintf("(and %s)", stamp)
	}
	return fmt.Sprintf("(and %s %s)", query, stamp)
}

// Comments implements CommentFetcher. Top-level comments are flattened to
// "author\nbody" blocks joined by blank lines.
func (c *Client) Comments(ctx context.Context, postID string) (string, error) {
	endpoint := fmt.Sprintf("%s/comments/%s?raw_json=1&limit=%d", c.apiEndpoint, url.PathEscape(postID), listingLimit)

	var body []listingResponse
	if err := c.getJSON(ctx, "Comments", "", endpoint, &body); err != nil {
		return "", err
	}
	// The comments endpoint returns two listings: the post, then its comments.
	if len(body) < 2 {
		return "", nil
	}

	var blocks []string
	for _, child := range body[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		author := child.Data.Author
		if author == "" {
			author = DeletedAuthor
		}
		blocks = append(blocks, author+"\n"+child.Data.Body)
	}
	return strings.Join(blocks, "\n\n"), nil
}

// CreatedAt implements AboutFetcher.
func (c *Client) CreatedAt(ctx context.Context, subreddit string) (time.Time, error) {
	endpoint := fmt.Sprintf("%s/r/%s/about?raw_json=1", c.apiEndpoint, url.PathEscape(subreddit))

	var body aboutResponse
	if err := c.getJSON(ctx, "About", subreddit, endpoint, &body); err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(body.Data.CreatedUTC), 0).UTC(), nil
}

// getJSON performs an authenticated GET and decodes the response,
// classifying HTTP failures into the sentinel taxonomy.
func (c *Client) getJSON(ctx context.Context, op, subreddit, endpoint string, out any) error {
	if err := c.ensureToken(ctx); err != nil {
		return &APIError{Op: op, Subreddit: subreddit, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &APIError{Op: op, Subreddit: subreddit, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &APIError{Op: op, Subreddit: subreddit, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp.StatusCode); err != nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &APIError{Op: op, Subreddit: subreddit, StatusCode: resp.StatusCode, Err: err}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Op: op, Subreddit: subreddit, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// ensureToken fetches or refreshes the app-only OAuth token.
func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authEndpoint+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrInvalidCredentials
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return ErrInvalidCredentials
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return nil
}

// classifyStatus maps an HTTP status to the sentinel taxonomy. Returns nil
// for success.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return ErrInvalidCredentials
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrSubredditNotFound
	case status == http.StatusTooManyRequests:
		return ErrThrottled
	case status >= 500:
		return ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

// listingResponse is the API's listing envelope.
type listingResponse struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string      `json:"kind"`
			Data listingItem `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// aboutResponse is the /r/<subreddit>/about envelope.
type aboutResponse struct {
	Data struct {
		CreatedUTC float64 `json:"created_utc"`
	} `json:"data"`
}

// listingItem holds the fields used from posts (t3) and comments (t1).
type listingItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	SelfText    string  `json:"selftext"`
	Body        string  `json:"body"`
}

func (it listingItem) toPost() Post {
	author := it.Author
	if author == "" {
		author = DeletedAuthor
	}
	return Post{
		ID:          it.ID,
		URL:         "https://www.reddit.com" + it.Permalink,
		Title:       it.Title,
		Author:      author,
		Score:       it.Score,
		NumComments: it.NumComments,
		Created:     time.Unix(int64(it.CreatedUTC), 0).UTC(),
		SelfText:    it.SelfText,
	}
}

// Compile-time interface checks.
var (
	_ Searcher       = (*Client)(nil)
	_ CommentFetcher = (*Client)(nil)
	_ AboutFetcher   = (*Client)(nil)
)
