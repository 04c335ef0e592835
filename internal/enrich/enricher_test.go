package enrich_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stackbay/inbox-agent/internal/enrich"
	"github.com/stackbay/inbox-agent/internal/llm"
	"github.com/stackbay/inbox-agent/internal/mail"
	"github.com/stackbay/inbox-agent/internal/prompt"
)

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// isActionPrompt tells the two per-item calls apart by their fixed suffixes.
func isActionPrompt(p string) bool {
	return strings.Contains(p, "Respond ONLY with valid JSON")
}

func testEmail() mail.EmailRecord {
	return mail.EmailRecord{
		ID:        7,
		Sender:    "bob@corp.test",
		Subject:   "Quarterly report",
		Body:      "Please submit the report by Friday.",
		Timestamp: "2025-11-03T09:15:00",
	}
}

func newEnricher(c llm.Completer) *enrich.Enricher {
	e := enrich.New(c)
	e.PacingDelay = 0
	return e
}

func TestEnrich_Success(t *testing.T) {
	t.Parallel()

	e := newEnricher(completerFunc(func(_ context.Context, p string) (string, error) {
		if isActionPrompt(p) {
			return `{"tasks": [{"task": "submit report", "deadline": "Friday"}]}`, nil
		}
		return "To-Do\nExplanation the model was told not to add.", nil
	}))

	rec := e.Enrich(context.Background(), testEmail(), prompt.Defaults())
	if rec.Status != mail.StatusSuccess {
		t.Fatalf("expected success, got %#v", rec)
	}
	if rec.Category != "To-Do" {
		t.Fatalf("category must be the first line, got %q", rec.Category)
	}
	if rec.Actions.Count() != 1 {
		t.Fatalf("expected 1 structured task, got %#v", rec.Actions)
	}
	if rec.ID != 7 || rec.Sender != "bob@corp.test" {
		t.Fatalf("input fields must carry over: %#v", rec)
	}
}

func TestEnrich_FencedActionsAreParsed(t *testing.T) {
	t.Parallel()

	e := newEnricher(completerFunc(func(_ context.Context, p string) (string, error) {
		if isActionPrompt(p) {
			return "```json\n{\"tasks\": []}\n```", nil
		}
		return "Important", nil
	}))

	rec := e.Enrich(context.Background(), testEmail(), prompt.Defaults())
	if rec.Status != mail.StatusSuccess {
		t.Fatalf("expected success, got %#v", rec)
	}
	if len(rec.Actions.Structured) == 0 {
		t.Fatalf("fenced JSON should parse as structured, got %#v", rec.Actions)
	}
}

func TestEnrich_UnparseableActionsDegradeToRawText(t *testing.T) {
	t.Parallel()

	e := newEnricher(completerFunc(func(_ context.Context, p string) (string, error) {
		if isActionPrompt(p) {
			return "- call Bob\n- book the room", nil
		}
		return "Important", nil
	}))

	rec := e.Enrich(context.Background(), testEmail(), prompt.Defaults())
	if rec.Status != mail.StatusSuccess {
		t.Fatalf("degraded extraction is still a success, got %#v", rec)
	}
	if rec.Actions.Raw == "" {
		t.Fatalf("expected raw actions, got %#v", rec.Actions)
	}
}

func TestEnrich_CompletionFailureBecomesErrorRecord(t *testing.T) {
	t.Parallel()

	e := newEnricher(completerFunc(func(_ context.Context, _ string) (string, error) {
		return "", &llm.APIError{Status: 500, Body: "backend exploded"}
	}))

	rec := e.Enrich(context.Background(), testEmail(), prompt.Defaults())
	if rec.Status != mail.StatusError {
		t.Fatalf("expected error status, got %#v", rec)
	}
	if rec.Category != "Error" {
		t.Fatalf("expected Error category, got %q", rec.Category)
	}
	if rec.Actions.Raw == "" || !strings.Contains(rec.Actions.Raw, "500") {
		t.Fatalf("diagnostic must embed the failure: %#v", rec.Actions)
	}
	if !strings.HasPrefix(rec.Actions.Raw, "Processing failed: ") {
		t.Fatalf("unexpected diagnostic shape: %q", rec.Actions.Raw)
	}
}

func TestEnrich_ActionExtractionFailureFailsTheItem(t *testing.T) {
	t.Parallel()

	e := newEnricher(completerFunc(func(_ context.Context, p string) (string, error) {
		if isActionPrompt(p) {
			return "", errors.New("boom")
		}
		return "Important", nil
	}))

	rec := e.Enrich(context.Background(), testEmail(), prompt.Defaults())
	if rec.Status != mail.StatusError || rec.Category != "Error" {
		t.Fatalf("expected error record, got %#v", rec)
	}
}

func TestEnrich_CancelledContextShortCircuits(t *testing.T) {
	t.Parallel()

	calls := 0
	e := enrich.New(completerFunc(func(_ context.Context, _ string) (string, error) {
		calls++
		return "Important", nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := e.Enrich(ctx, testEmail(), prompt.Defaults())
	if rec.Status != mail.StatusError {
		t.Fatalf("expected error record, got %#v", rec)
	}
	if calls != 0 {
		t.Fatalf("no completion call should happen after cancel, got %d", calls)
	}
}
