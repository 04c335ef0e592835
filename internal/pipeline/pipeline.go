// Package pipeline schedules the batch enrichment run: bounded fan-out,
// result collection, stable final ordering, and persistence.
package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/stackbay/inbox-agent/internal/enrich"
	"github.com/stackbay/inbox-agent/internal/mail"
	"github.com/stackbay/inbox-agent/internal/pipeline/worker"
	"github.com/stackbay/inbox-agent/internal/prompt"
	"github.com/stackbay/inbox-agent/internal/store"
)

// ErrEmptyBatch means the caller supplied nothing to process. An empty
// persisted inbox is a recoverable upstream condition, not this package's
// concern.
var ErrEmptyBatch = errors.New("empty batch: no emails to process")

// DefaultWorkers bounds concurrent in-flight items.
const DefaultWorkers = 5

// Progress is the advisory per-item completion notification.
type Progress struct {
	Completed int
	Total     int
	Subject   string
	Status    string
}

type Options struct {
	Workers int

	// RateLimitRPS adds a global request rate limit across workers on top of
	// the enricher's per-item pacing delay. <=0 disables it.
	RateLimitRPS float64

	// OnProgress observes completions as they happen, out of order. Advisory
	// only; never required for correctness.
	OnProgress func(Progress)
}

// Run fans the batch out across the worker pool, orders the collected results
// by id ascending, and persists them before returning.
//
// Per-item failures become status=error records and never abort the run.
// Cooperative cancellation stops dispatch and returns whatever completed,
// still ordered and persisted, without an error.
func Run(
	ctx context.Context,
	emails []mail.EmailRecord,
	prompts prompt.Set,
	enricher *enrich.Enricher,
	batch *store.Batch,
	opts Options,
) ([]mail.EnrichedRecord, error) {
	if len(emails) == 0 {
		return nil, ErrEmptyBatch
	}

	total := len(emails)
	completed := 0

	records := worker.ProcessAll(ctx, emails,
		func(ctx context.Context, e mail.EmailRecord) mail.EnrichedRecord {
			return enricher.Enrich(ctx, e, prompts)
		},
		func(rec mail.EnrichedRecord) {
			completed++
			if opts.OnProgress != nil {
				opts.OnProgress(Progress{
					Completed: completed,
					Total:     total,
					Subject:   rec.Subject,
					Status:    rec.Status,
				})
			}
		},
		worker.Options{Workers: opts.Workers, RateLimitRPS: opts.RateLimitRPS},
	)

	slices.SortFunc(records, func(a, b mail.EnrichedRecord) int {
		return cmp.Compare(a.ID, b.ID)
	})

	if batch != nil {
		if err := batch.Save(records); err != nil {
			return records, fmt.Errorf("save processed batch: %w", err)
		}
	}
	return records, nil
}
