// Package agent implements the ad hoc single-email operations: free-form
// question answering and reply drafting. Both call the completion client
// directly rather than going through the batch pipeline.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/stackbay/inbox-agent/internal/llm"
	"github.com/stackbay/inbox-agent/internal/mail"
	"github.com/stackbay/inbox-agent/internal/prompt"
)

// Ask answers a free-form question about one email.
func Ask(ctx context.Context, c llm.Completer, email mail.EmailRecord, question string) (string, error) {
	p := fmt.Sprintf(`You are an email assistant.

Email:
Sender: %s
Subject: %s
Body:
%s

User question:
%s

Give a short, clear answer.`,
		email.Sender, email.Subject, email.Body, question)

	return c.Complete(ctx, p)
}

// DraftReply generates a reply draft for one email using the auto-reply
// prompt template.
func DraftReply(ctx context.Context, c llm.Completer, email mail.EmailRecord, prompts prompt.Set) (string, error) {
	p := fmt.Sprintf(`%s

Original Email:
Sender: %s
Subject: %s
Body:
%s

Generate the reply now:`,
		prompts.AutoReply, email.Sender, email.Subject, email.Body)

	return c.Complete(ctx, p)
}

// ParseFollowups pulls the suggested followup lines out of a draft body.
// Followups appear after a "Followups:" marker, one per dash or bullet line.
func ParseFollowups(body string) []string {
	_, after, found := strings.Cut(body, "Followups:")
	if !found {
		return nil
	}
	var out []string
	for _, line := range strings.Split(after, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "-• "))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// NewDraft builds the append-only draft record for a saved reply. enriched
// may be nil when the email was never processed; the metadata snapshot is
// then empty.
func NewDraft(email mail.EmailRecord, body string, enriched *mail.EnrichedRecord) mail.DraftRecord {
	d := mail.DraftRecord{
		EmailID:            email.ID,
		OriginalSubject:    email.Subject,
		DraftSubject:       "Re: " + email.Subject,
		DraftBody:          strings.TrimSpace(body),
		SuggestedFollowups: ParseFollowups(body),
	}
	if enriched != nil {
		d.Metadata = mail.DraftMetadata{
			Category: enriched.Category,
			Actions:  enriched.Actions,
		}
	}
	return d
}
