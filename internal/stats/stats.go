// Package stats computes the aggregate inbox views shown by the stats
// command: overview counters, category and sender distributions, daily
// volume, and keyword frequency.
package stats

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/stackbay/inbox-agent/internal/mail"
	"github.com/stackbay/inbox-agent/internal/score"
)

// Simple stopword list so the keyword view looks cleaner.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "you": {}, "your": {}, "this": {}, "that": {},
	"are": {}, "our": {}, "has": {}, "have": {}, "will": {}, "from": {}, "all": {}, "but": {},
	"can": {}, "was": {}, "were": {}, "they": {}, "their": {}, "them": {}, "about": {},
	"please": {}, "kindly": {}, "hello": {}, "hi": {}, "thanks": {}, "thank": {},
	"team": {}, "dear": {}, "regards": {}, "best": {}, "here": {}, "link": {}, "click": {},
	"http": {}, "https": {}, "com": {}, "subject": {}, "body": {},
}

// Overview is the headline counter row.
type Overview struct {
	TotalEmails   int
	UniqueSenders int
	ToDoEmails    int
	HighPriority  int
}

// Count is one (name, occurrences) pair in a distribution.
type Count struct {
	Name string
	N    int
}

// DayCount is the email volume for one calendar day.
type DayCount struct {
	Date string // YYYY-MM-DD
	N    int
}

func Summarize(records []mail.EnrichedRecord) Overview {
	o := Overview{TotalEmails: len(records)}
	senders := make(map[string]struct{})
	for _, r := range records {
		senders[r.Sender] = struct{}{}
		if strings.Contains(strings.ToLower(r.Category), "to-do") {
			o.ToDoEmails++
		}
		if score.Score(r).Label == score.LabelHigh {
			o.HighPriority++
		}
	}
	o.UniqueSenders = len(senders)
	return o
}

// CategoryCounts returns the category distribution, most frequent first.
func CategoryCounts(records []mail.EnrichedRecord) []Count {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Category]++
	}
	return sortedCounts(counts, len(counts))
}

// TopSenders returns the n most frequent senders.
func TopSenders(records []mail.EnrichedRecord, n int) []Count {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Sender]++
	}
	return sortedCounts(counts, n)
}

// DailyVolume buckets records per calendar day, sorted by date. Records with
// unparseable timestamps are skipped.
func DailyVolume(records []mail.EnrichedRecord) []DayCount {
	counts := make(map[string]int)
	for _, r := range records {
		t, ok := parseTimestamp(r.Timestamp)
		if !ok {
			continue
		}
		counts[t.Format("2006-01-02")]++
	}
	out := make([]DayCount, 0, len(counts))
	for date, n := range counts {
		out = append(out, DayCount{Date: date, N: n})
	}
	slices.SortFunc(out, func(a, b DayCount) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return out
}

// KeywordCounts builds a keyword frequency list over subject+body, filtered
// through the stopword list, most frequent first, capped at topN.
func KeywordCounts(records []mail.EnrichedRecord, topN int) []Count {
	counts := make(map[string]int)
	for _, r := range records {
		text := strings.ToLower(r.Subject + " " + r.Body)
		for _, tok := range strings.Fields(text) {
			tok = strings.Trim(tok, `.,!?:;()[]"'`)
			if len(tok) <= 2 {
				continue
			}
			if _, skip := stopwords[tok]; skip {
				continue
			}
			counts[tok]++
		}
	}
	return sortedCounts(counts, topN)
}

func sortedCounts(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for name, c := range counts {
		out = append(out, Count{Name: name, N: c})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.N, a.N); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
