// Package gemini provides a Gemini-backed completion backend behind the same
// Completer contract and retry policy as the default HTTP client.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/stackbay/inbox-agent/internal/llm"
	"google.golang.org/genai"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// RequestTimeout is the per-call deadline. Defaults to
	// llm.DefaultRequestTimeout.
	RequestTimeout time.Duration

	Retry llm.RetryPolicy
}

type Completer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	retry   llm.RetryPolicy
}

func New(ctx context.Context, cfg Config) (*Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = llm.DefaultRequestTimeout
	}
	return &Completer{
		client:  client,
		model:   strings.TrimSpace(cfg.Model),
		timeout: timeout,
		retry:   cfg.Retry,
	}, nil
}

// Complete generates one completion under the per-call deadline, mapping
// Gemini failures onto the shared retry classes so 429s and timeouts get the
// same one-shot retry as the default backend.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	return c.retry.Do(ctx, func(ctx context.Context) (string, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.Models.GenerateContent(
			reqCtx,
			c.model,
			genai.Text(prompt),
			&genai.GenerateContentConfig{
				CandidateCount: 1,
				Temperature:    genai.Ptr[float32](0.2),
			},
		)
		if err != nil {
			if ctx.Err() != nil {
				// Caller cancellation is not a timeout; do not retry.
				return "", ctx.Err()
			}
			if reqCtx.Err() != nil {
				return "", &llm.TimeoutError{Err: err}
			}
			return "", classifyErr(err)
		}
		return strings.TrimSpace(resp.Text()), nil
	})
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.APIError{Status: apiErr.Code, Body: apiErr.Message}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.TimeoutError{Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &llm.TimeoutError{Err: err}
	}
	return err
}
