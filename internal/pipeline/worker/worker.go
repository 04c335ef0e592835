// Package worker provides the bounded pool the pipeline fans items out on.
package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

type Options struct {
	// Workers bounds in-flight items regardless of batch size.
	Workers int

	// RateLimitRPS is a global limit across all workers. Set to <=0 to disable.
	RateLimitRPS float64
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 5
	}
	return o
}

// ProcessAll runs process over all items on a bounded pool and returns the
// outputs that completed, in completion order. onDone, if set, observes each
// completion from a single goroutine.
//
// Cancellation is cooperative: when ctx is cancelled no new items are
// dispatched, in-flight items finish, and the partial output is returned.
// Callers that need to distinguish a cut-short run check ctx.Err themselves.
func ProcessAll[In any, Out any](
	ctx context.Context,
	items []In,
	process func(context.Context, In) Out,
	onDone func(Out),
	opts Options,
) []Out {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	jobs := make(chan In)
	done := make(chan Out, opts.Workers)

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if ctx.Err() != nil {
					return
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				done <- process(ctx, item)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, item := range items {
			select {
			case jobs <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	out := make([]Out, 0, len(items))
	for res := range done {
		out = append(out, res)
		if onDone != nil {
			onDone(res)
		}
	}
	return out
}
