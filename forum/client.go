package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBodySize caps a forum API response body.
const maxBodySize = 32 * 1024 * 1024 // 32MB

// Client talks to one Discourse-compatible forum.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTimeout sets the per-request timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a forum client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		userAgent: "forumdigest/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest returns the current latest-topics listing.
func (c *Client) Latest(ctx context.Context) ([]TopicStub, error) {
	var resp latestResponse
	if err := c.getJSON(ctx, c.baseURL+"/latest.json", &resp); err != nil {
		return nil, fmt.Errorf("fetch latest topics: %w", err)
	}
	return resp.TopicList.Topics, nil
}

// Topic returns the first page of a topic's post stream.
func (c *Client) Topic(ctx context.Context, id int64) (*Topic, error) {
	var resp topicResponse
	url := fmt.Sprintf("%s/t/%d.json", c.baseURL, id)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetch topic %d: %w", id, err)
	}
	return &Topic{
		ID:    resp.ID,
		Title: resp.Title,
		Posts: resp.PostStream.Posts,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
