// Package score derives a display priority for an enriched email. The
// assessment is computed fresh on every read and never persisted.
package score

import (
	"strings"

	"github.com/stackbay/inbox-agent/internal/mail"
)

// Priority labels, from thresholds on the additive score.
const (
	LabelHigh   = "HIGH"
	LabelMedium = "MEDIUM"
	LabelLow    = "LOW"
)

// Thresholds: score >= 7 is HIGH, >= 4 is MEDIUM, below that LOW.
const (
	highThreshold   = 7
	mediumThreshold = 4
)

var (
	urgentKeywords   = []string{"urgent", "asap", "immediately", "critical", "high priority"}
	deadlineKeywords = []string{"deadline", "by ", "before ", "due ", "last date", "submit"}
	meetingKeywords  = []string{"meeting", "call", "discussion", "review", "planning"}
)

// Assessment is the derived score/label pair for one record.
type Assessment struct {
	Score int
	Label string
}

// Score is a pure function over one enriched record: additive keyword and
// category heuristics plus a capped action-count contribution. All substring
// checks are case-insensitive.
//
// Spam/newsletter categories are discounted by only -1 while important/to-do
// gain +3, and the action count overlaps with the to-do category bonus. Both
// are deliberate product behavior, kept as-is.
func Score(rec mail.EnrichedRecord) Assessment {
	s := 0

	category := strings.ToLower(rec.Category)
	text := strings.ToLower(rec.Subject + " " + rec.Body)

	if strings.Contains(category, "important") {
		s += 3
	}
	if strings.Contains(category, "to-do") || strings.Contains(category, "todo") {
		s += 3
	}
	if strings.Contains(category, "spam") || strings.Contains(category, "newsletter") {
		s--
	}

	if containsAny(text, urgentKeywords) {
		s += 3
	}
	if containsAny(text, deadlineKeywords) {
		s += 2
	}
	if containsAny(text, meetingKeywords) {
		s++
	}

	if n := rec.Actions.Count(); n > 0 {
		s += min(3, n)
	}

	label := LabelLow
	switch {
	case s >= highThreshold:
		label = LabelHigh
	case s >= mediumThreshold:
		label = LabelMedium
	}
	return Assessment{Score: s, Label: label}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
