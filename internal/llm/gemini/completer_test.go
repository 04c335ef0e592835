package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stackbay/inbox-agent/internal/llm"
	"google.golang.org/genai"
)

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "i/o timeout" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return true }

func TestClassifyErr(t *testing.T) {
	t.Parallel()

	t.Run("api error keeps the status", func(t *testing.T) {
		got := classifyErr(genai.APIError{Code: 429, Message: "rate limited"})
		var apiErr *llm.APIError
		if !errors.As(got, &apiErr) || apiErr.Status != 429 {
			t.Fatalf("expected 429 APIError, got %T %v", got, got)
		}
	})

	t.Run("deadline becomes timeout", func(t *testing.T) {
		got := classifyErr(fmt.Errorf("generate: %w", context.DeadlineExceeded))
		var toErr *llm.TimeoutError
		if !errors.As(got, &toErr) {
			t.Fatalf("expected TimeoutError, got %T %v", got, got)
		}
	})

	t.Run("net timeout becomes timeout", func(t *testing.T) {
		got := classifyErr(timeoutNetErr{})
		var toErr *llm.TimeoutError
		if !errors.As(got, &toErr) {
			t.Fatalf("expected TimeoutError, got %T %v", got, got)
		}
	})

	t.Run("other errors pass through", func(t *testing.T) {
		in := errors.New("boom")
		if got := classifyErr(in); got != in {
			t.Fatalf("expected passthrough, got %T %v", got, got)
		}
	})
}

func testRetry() llm.RetryPolicy {
	return llm.RetryPolicy{
		RateLimitPause: time.Millisecond,
		TimeoutPause:   time.Millisecond,
	}
}

// generateContentHandler answers every request with one text candidate after
// an optional pause. Status overrides (429 etc.) are popped in order.
func generateContentHandler(calls *atomic.Int32, delay time.Duration, text string, statuses ...int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		if i := int(n) - 1; i < len(statuses) && statuses[i] != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(statuses[i])
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": statuses[i], "message": "scripted failure", "status": "UNAVAILABLE"},
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}}},
			},
		})
	})
}

func newTestCompleter(t *testing.T, url string, timeout time.Duration) *Completer {
	t.Helper()
	c, err := New(context.Background(), Config{
		APIKey:         "test-key",
		Model:          "gemini-2.0-flash",
		BaseURL:        url,
		RequestTimeout: timeout,
		Retry:          testRetry(),
	})
	if err != nil {
		t.Fatalf("new completer: %v", err)
	}
	return c
}

func TestComplete_Success(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(generateContentHandler(&calls, 0, "  Important\n"))
	t.Cleanup(ts.Close)

	got, err := newTestCompleter(t, ts.URL, 0).Complete(context.Background(), "categorize this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Important" {
		t.Fatalf("expected trimmed text, got %q", got)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 request, got %d", calls.Load())
	}
}

func TestComplete_RetriesOnceOn429(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(generateContentHandler(&calls, 0, "second time lucky", http.StatusTooManyRequests))
	t.Cleanup(ts.Close)

	got, err := newTestCompleter(t, ts.URL, 0).Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "second time lucky" {
		t.Fatalf("unexpected text: %q", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}

func TestComplete_AppliesPerCallDeadline(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(generateContentHandler(&calls, 300*time.Millisecond, "too slow"))
	t.Cleanup(ts.Close)

	start := time.Now()
	_, err := newTestCompleter(t, ts.URL, 30*time.Millisecond).Complete(context.Background(), "p")

	var toErr *llm.TimeoutError
	if !errors.As(err, &toErr) {
		t.Fatalf("expected TimeoutError, got %T %v", err, err)
	}
	// One timed-out attempt plus the single retry.
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("call was not bounded by the deadline: %v", elapsed)
	}
}

func TestComplete_CallerCancellationIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(generateContentHandler(&calls, time.Second, "never read"))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newTestCompleter(t, ts.URL, 10*time.Second).Complete(ctx, "p")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 request, got %d", calls.Load())
	}
}

func TestNew_RequiresKeyAndModel(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{Model: "gemini-2.0-flash"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := New(context.Background(), Config{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing model")
	}
}
