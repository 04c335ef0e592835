// Package enrich derives a category label and an action-item list for one
// email via the completion service.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stackbay/inbox-agent/internal/llm"
	"github.com/stackbay/inbox-agent/internal/mail"
	"github.com/stackbay/inbox-agent/internal/prompt"
	"github.com/stackbay/inbox-agent/internal/redact"
)

// DefaultPacingDelay spaces out item starts to stay under provider rate
// limits. It runs inside each item's unit of work, not globally serialized.
const DefaultPacingDelay = 200 * time.Millisecond

type Enricher struct {
	Completer llm.Completer

	// PacingDelay precedes each item's completion calls. <=0 disables it.
	PacingDelay time.Duration
}

func New(c llm.Completer) *Enricher {
	return &Enricher{Completer: c, PacingDelay: DefaultPacingDelay}
}

// Enrich runs both completion calls for one email. It never fails outward:
// any completion error produces a status=error record carrying a diagnostic
// in place of the actions.
func (e *Enricher) Enrich(ctx context.Context, email mail.EmailRecord, prompts prompt.Set) mail.EnrichedRecord {
	rec := mail.EnrichedRecord{
		ID:        email.ID,
		Sender:    email.Sender,
		Subject:   email.Subject,
		Body:      email.Body,
		Timestamp: email.Timestamp,
	}

	if e.PacingDelay > 0 {
		t := time.NewTimer(e.PacingDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return errorRecord(rec, ctx.Err())
		}
	}

	category, err := e.categorize(ctx, email, prompts.Categorization)
	if err != nil {
		return errorRecord(rec, err)
	}
	actionsText, err := e.extractActions(ctx, email, prompts.ActionItem)
	if err != nil {
		return errorRecord(rec, err)
	}

	rec.Category = category
	rec.Actions = mail.ParseActions(actionsText)
	rec.Status = mail.StatusSuccess
	return rec
}

func errorRecord(rec mail.EnrichedRecord, err error) mail.EnrichedRecord {
	rec.Category = "Error"
	rec.Actions = mail.RawActions("Processing failed: " + redact.Secrets(err.Error()))
	rec.Status = mail.StatusError
	return rec
}

// categorize asks for a category label and keeps the first line of the reply.
func (e *Enricher) categorize(ctx context.Context, email mail.EmailRecord, base string) (string, error) {
	full := fmt.Sprintf(`%s

Email:
Sender: %s
Subject: %s
Body:
%s

Respond with ONLY the category name (like: "Work", "Personal", "Urgent", etc.).`,
		base, email.Sender, email.Subject, email.Body)

	out, err := e.Completer.Complete(ctx, full)
	if err != nil {
		return "", err
	}
	first, _, _ := strings.Cut(out, "\n")
	return strings.TrimSpace(first), nil
}

// extractActions asks for the task list. Parsing of the reply happens in the
// caller; a non-JSON reply degrades to raw text, not an error.
func (e *Enricher) extractActions(ctx context.Context, email mail.EmailRecord, base string) (string, error) {
	full := fmt.Sprintf(`%s

Email:
Sender: %s
Subject: %s
Body:
%s

Respond ONLY with valid JSON.
Do NOT use backticks or markdown.`,
		base, email.Sender, email.Subject, email.Body)

	return e.Completer.Complete(ctx, full)
}
