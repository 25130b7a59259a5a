package expand

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client is an Expander backed by an OpenAI-compatible chat endpoint, with
// retry and client-side rate limiting.
type Client struct {
	endpoint    string
	model       string
	apiKey      string
	httpClient  *http.Client
	retryConfig RetryConfig
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithAPIKey sets the bearer token sent with each request.
func WithAPIKey(key string) ClientOption {
	return func(client *Client) {
		client.apiKey = key
	}
}

// WithRateLimit caps outgoing requests at rps per second. Zero disables the
// limiter.
func WithRateLimit(rps float64) ClientOption {
	return func(client *Client) {
		if rps > 0 {
			client.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient creates an expansion client for the given endpoint and model.
func NewClient(endpoint, model string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		model:       model,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // Allow time for slow model responses
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Expand sends one expansion request, retrying transient failures with
// capped exponential backoff.
func (c *Client) Expand(ctx context.Context, req Request) (*Result, error) {
	if req.Concept == "" {
		return nil, MarkFatal(fmt.Errorf("concept is required"))
	}

	requestID := uuid.New().String()

	var lastErr error
	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		result, err := c.doRequest(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsFatal(err) {
			return nil, err
		}

		if attempt < c.retryConfig.MaxAttempts {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debug("Expansion request failed, retrying",
				"request_id", requestID,
				"attempt", attempt,
				"max_attempts", c.retryConfig.MaxAttempts,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("expansion failed after %d attempts: %w", c.retryConfig.MaxAttempts, lastErr)
}

// calculateBackoff computes exponential backoff duration with jitter.
// Jitter prevents thundering herd when multiple clients retry simultaneously.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retryConfig.Multiplier
	}

	backoff := time.Duration(float64(c.retryConfig.InitialDelay) * multiplier)
	if backoff > c.retryConfig.MaxDelay {
		backoff = c.retryConfig.MaxDelay
	}

	// Add jitter: +/- 25% to prevent synchronized retries
	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the OpenAI-compatible response body.
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// doRequest executes a single HTTP request against the chat endpoint.
func (c *Client) doRequest(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(req)},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, MarkFatal(fmt.Errorf("build request body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, MarkFatal(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Network errors are transient
		return nil, MarkTransient(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, MarkTransient(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, MarkTransient(fmt.Errorf("parse response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return nil, MarkTransient(fmt.Errorf("response contains no choices"))
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}

	return &Result{
		Expansion:    parsed.Choices[0].Message.Content,
		Model:        model,
		TokensUsed:   parsed.Usage.TotalTokens,
		FinishReason: parsed.Choices[0].FinishReason,
	}, nil
}

// classifyHTTPError determines if an HTTP error is transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("expansion API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return MarkTransient(err)
	case statusCode >= 500:
		return MarkTransient(err)
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return MarkFatal(err)
	case statusCode >= 400:
		return MarkFatal(err)
	default:
		return MarkTransient(err)
	}
}
