// Package mail holds the record types shared by the processing pipeline,
// the stores, and the scoring pass.
package mail

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Processing status values recorded on an EnrichedRecord.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// EmailRecord is one raw inbox message. Records are produced externally and
// are read-only to the pipeline.
type EmailRecord struct {
	ID        int    `json:"id"`
	Sender    string `json:"sender"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
}

// EnrichedRecord is an EmailRecord plus the model-derived category and action
// items. Created once per batch run and never mutated afterwards.
type EnrichedRecord struct {
	ID        int     `json:"id"`
	Sender    string  `json:"sender"`
	Subject   string  `json:"subject"`
	Body      string  `json:"body"`
	Timestamp string  `json:"timestamp"`
	Category  string  `json:"category"`
	Actions   Actions `json:"actions"`
	Status    string  `json:"status"`
}

// ActionItem is one structured task extracted from an email.
type ActionItem struct {
	Task     string  `json:"task"`
	Deadline *string `json:"deadline"`
}

// Actions is the action-item extraction result for one email: either the
// structured JSON value the model returned, or its raw text when that text
// did not parse as JSON. On error records it carries the diagnostic message.
//
// At most one of Structured and Raw is set. The zero value means "no actions"
// and round-trips through JSON as null.
type Actions struct {
	Structured json.RawMessage
	Raw        string
}

// ParseActions strips surrounding code-fence markers from model output and
// keeps it as structured JSON when it parses, or verbatim text when it does
// not. A parse failure is a degradation, not an error.
func ParseActions(text string) Actions {
	cleaned := stripCodeFences(text)
	if cleaned == "" {
		return Actions{}
	}
	if compacted, ok := compactJSON([]byte(cleaned)); ok {
		return Actions{Structured: compacted}
	}
	return Actions{Raw: cleaned}
}

// compactJSON canonicalizes a JSON value so the structured form compares and
// round-trips independent of formatting whitespace.
func compactJSON(b []byte) (json.RawMessage, bool) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, false
	}
	return json.RawMessage(buf.Bytes()), true
}

// RawActions wraps free text, bypassing the parse attempt. Used for error
// diagnostics.
func RawActions(text string) Actions {
	return Actions{Raw: text}
}

func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.ReplaceAll(cleaned, "```json", "")
		cleaned = strings.ReplaceAll(cleaned, "```", "")
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

// IsZero reports whether no actions were recorded at all.
func (a Actions) IsZero() bool {
	return len(a.Structured) == 0 && a.Raw == ""
}

// Count returns the number of structured tasks: the length of the "tasks"
// list on an object, the length of a bare array, otherwise zero.
func (a Actions) Count() int {
	if len(a.Structured) == 0 {
		return 0
	}
	var obj struct {
		Tasks []json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal(a.Structured, &obj); err == nil && obj.Tasks != nil {
		return len(obj.Tasks)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(a.Structured, &list); err == nil {
		return len(list)
	}
	return 0
}

// Items decodes the structured tasks best-effort for display. Returns nil
// when the actions are raw text or do not follow the expected shape.
func (a Actions) Items() []ActionItem {
	if len(a.Structured) == 0 {
		return nil
	}
	var obj struct {
		Items []ActionItem `json:"tasks"`
	}
	if err := json.Unmarshal(a.Structured, &obj); err == nil && obj.Items != nil {
		return obj.Items
	}
	var list []ActionItem
	if err := json.Unmarshal(a.Structured, &list); err == nil {
		return list
	}
	return nil
}

// MarshalJSON emits the structured value verbatim, the raw text as a JSON
// string, or null for the zero value.
func (a Actions) MarshalJSON() ([]byte, error) {
	if len(a.Structured) > 0 {
		return a.Structured, nil
	}
	if a.Raw != "" {
		return json.Marshal(a.Raw)
	}
	return []byte("null"), nil
}

// UnmarshalJSON restores the structured-or-raw split: JSON strings become Raw,
// every other value stays structured.
func (a *Actions) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = Actions{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*a = Actions{Raw: s}
		return nil
	}
	compacted, ok := compactJSON(trimmed)
	if !ok {
		return errors.New("actions: invalid JSON value")
	}
	*a = Actions{Structured: compacted}
	return nil
}

// DraftRecord is one saved reply draft. The draft collection is append-only:
// records are never edited or deleted once saved.
type DraftRecord struct {
	EmailID            int           `json:"email_id"`
	OriginalSubject    string        `json:"original_subject"`
	DraftSubject       string        `json:"draft_subject"`
	DraftBody          string        `json:"draft_body"`
	SuggestedFollowups []string      `json:"suggested_followups"`
	Metadata           DraftMetadata `json:"metadata"`
}

// DraftMetadata snapshots the enrichment of the source email at save time.
type DraftMetadata struct {
	Category string  `json:"category"`
	Actions  Actions `json:"actions"`
}
