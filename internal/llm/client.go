// Package llm wraps the remote chat-completions service behind a small
// Completer contract with a one-shot retry policy.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the OpenRouter chat-completions endpoint. Any
	// OpenAI-format endpoint works.
	DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

	// DefaultModel balances speed and accuracy for batch categorization.
	DefaultModel = "meta-llama/llama-3.2-3b-instruct"

	// DefaultRequestTimeout bounds each completion call. The batch as a whole
	// is never bounded.
	DefaultRequestTimeout = 20 * time.Second

	defaultTemperature = 0.2
)

// Completer issues one blocking completion call.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	// MaxTokens caps the response length. <=0 omits the field.
	MaxTokens int

	// RequestTimeout is the per-call deadline. Defaults to DefaultRequestTimeout.
	RequestTimeout time.Duration

	Retry RetryPolicy

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return c
}

// Client calls an OpenAI-format chat-completions endpoint with bearer auth.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("completion api key is required")
	}
	return &Client{cfg: cfg.withDefaults()}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one prompt and returns the trimmed completion text. A 429
// response pauses and retries once, a timeout pauses briefly and retries once;
// any other failure, or a second failure, propagates immediately.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: defaultTemperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}
	return c.cfg.Retry.Do(ctx, func(ctx context.Context) (string, error) {
		return c.doRequest(ctx, body)
	})
}

func (c *Client) doRequest(ctx context.Context, body []byte) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Caller cancellation is not a timeout; do not retry.
			return "", ctx.Err()
		}
		if timeoutErr(err) {
			return "", &TimeoutError{Err: err}
		}
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if timeoutErr(err) {
			return "", &TimeoutError{Err: err}
		}
		return "", fmt.Errorf("read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
