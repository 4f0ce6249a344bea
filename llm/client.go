// Package llm performs the external summarization call with bounded retries,
// error classification, token accounting, and strict parsing of the model's
// structured reply.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// systemPrompt instructs the model to return the strict JSON shape
// ParseSummary expects. Post IDs and timestamps in the excerpt are internal
// anchors and must not leak into the summary; the sanitizer is the backstop
// when they do anyway.
const systemPrompt = "You are summarizing ONE forum thread excerpt.\n" +
	"Return ONLY a JSON object, no prose around it:\n" +
	`{"headline": "<one line>", "bullets": ["<key fact>", ...], "citations": ["<post reference>", ...]}` + "\n" +
	"Use 3-6 bullets. citations is optional and aligns with bullets by position.\n" +
	"Do NOT include post IDs, timestamps, author names, or URLs in headline or bullets."

// Result is the outcome of one successful summarization call.
type Result struct {
	// RequestID correlates log lines for this call.
	RequestID string

	// Summary is the parsed, sanitized structured summary.
	Summary *Summary

	// Raw is the model's content before summary parsing.
	Raw string

	// InputTokens and OutputTokens are backend-reported when available,
	// locally estimated otherwise. Never zero for non-empty text.
	InputTokens  int
	OutputTokens int
}

// Client performs summarization calls against one configured backend. It
// holds no mutable state beyond the HTTP client; a single Client is shared by
// all concurrently processed topics.
type Client struct {
	provider   Provider
	baseURL    string
	model      string
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
	tokens     TokenCounter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithTokenCounter sets the token counter used for usage estimation.
func WithTokenCounter(tc TokenCounter) ClientOption {
	return func(c *Client) { c.tokens = tc }
}

// NewClient creates a summarization client for the named provider.
func NewClient(providerName, baseURL, model string, opts ...ClientOption) (*Client, error) {
	p := GetProvider(providerName)
	if p == nil {
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
	c := &Client{
		provider: p,
		baseURL:  baseURL,
		model:    model,
		retry:    DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // local model servers warm up slowly
		},
		logger: slog.Default(),
		tokens: HeuristicCounter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Summarize sends the prompt and returns the parsed summary with token
// counts. Transport and server failures are retried with exponential backoff
// and jitter until the configured elapsed-time bound; client and decode
// failures are permanent, except a malformed summary payload when
// RetryDecodeFailures is set. The caller bounds the whole call with ctx; a
// deadline expiry surfaces as a ClassTimeout CallError.
func (c *Client) Summarize(ctx context.Context, prompt string) (*Result, error) {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}

	body, err := c.provider.BuildRequestBody(c.model, messages)
	if err != nil {
		return nil, NewCallError(ClassClient, fmt.Errorf("build request body: %w", err))
	}

	requestID := uuid.New().String()
	logger := c.logger.With("request_id", requestID, "model", c.model, "provider", c.provider.Name())

	inputTokens := 0
	for _, m := range messages {
		inputTokens += c.tokens.Count(m.Content)
	}

	url := c.provider.BuildURL(c.baseURL)

	op := func() (*attempt, error) {
		return c.doRequest(ctx, url, body)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("summarize attempt failed, backing off", "error", err, "backoff", wait)
	}

	att, err := backoff.RetryNotifyWithData(op, backoff.WithContext(c.retry.newBackOff(), ctx), notify)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, NewCallError(ClassTimeout, fmt.Errorf("summarize deadline exceeded: %w", err))
		}
		var ce *CallError
		if errors.As(err, &ce) {
			return nil, ce
		}
		return nil, NewCallError(ClassTransport, err)
	}

	if att.raw.Usage != nil && att.raw.Usage.PromptTokens > 0 {
		inputTokens = att.raw.Usage.PromptTokens
	}
	outputTokens := c.tokens.Count(att.raw.Content)
	if att.raw.Usage != nil && att.raw.Usage.CompletionTokens > 0 {
		outputTokens = att.raw.Usage.CompletionTokens
	}

	logger.Debug("summarize succeeded", "input_tokens", inputTokens, "output_tokens", outputTokens)

	return &Result{
		RequestID:    requestID,
		Summary:      att.summary,
		Raw:          att.raw.Content,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

// attempt is the successful outcome of one HTTP round trip.
type attempt struct {
	raw     *RawResponse
	summary *Summary
}

// doRequest performs one HTTP round trip, classifies failures, and parses the
// summary payload. Permanent failures are wrapped for the backoff loop.
func (c *Client) doRequest(ctx context.Context, url string, body []byte) (*attempt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(NewCallError(ClassClient, fmt.Errorf("create request: %w", err)))
	}
	req.Header.Set("Content-Type", "application/json")
	c.provider.SetHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewCallError(ClassTransport, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, NewCallError(ClassTransport, fmt.Errorf("read response body: %w", err))
	}

	if err := classifyStatus(resp.StatusCode, respBody); err != nil {
		if IsTransient(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	raw, err := c.provider.ParseResponse(respBody)
	if err != nil {
		// The envelope itself is malformed; a server returning a stable
		// bad shape would be hammered by retries.
		return nil, backoff.Permanent(NewCallError(ClassDecode, err))
	}

	summary, err := ParseSummary(raw.Content)
	if err != nil {
		derr := NewCallError(ClassDecode, err)
		if c.retry.RetryDecodeFailures {
			return nil, derr
		}
		return nil, backoff.Permanent(derr)
	}
	summary.Sanitize()

	return &attempt{raw: raw, summary: summary}, nil
}

// classifyStatus maps an HTTP status to the error taxonomy. nil means 200.
func classifyStatus(status int, body []byte) error {
	if status == http.StatusOK {
		return nil
	}

	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}
	err := fmt.Errorf("backend status %d: %s", status, snippet)

	switch {
	case status == http.StatusTooManyRequests:
		return NewCallError(ClassServer, err)
	case status >= 500:
		return NewCallError(ClassServer, err)
	case status >= 400:
		return NewCallError(ClassClient, err)
	default:
		return NewCallError(ClassClient, err)
	}
}
