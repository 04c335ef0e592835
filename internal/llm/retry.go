package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Default pauses before the single retry attempt.
const (
	DefaultRateLimitPause = 2 * time.Second
	DefaultTimeoutPause   = 1 * time.Second
)

// retryClass partitions completion failures by how the retry policy reacts.
type retryClass int

const (
	retryNone retryClass = iota
	retryRateLimited
	retryTimedOut
)

type retryState int

const (
	stateFirstAttempt retryState = iota
	stateRetrying
)

// RetryPolicy is the one-shot retry shared by completion backends: a rate
// limit (429) pauses RateLimitPause and retries once, a timeout pauses
// TimeoutPause and retries once, everything else is terminal. A failure on
// the retry attempt is terminal regardless of class.
type RetryPolicy struct {
	RateLimitPause time.Duration
	TimeoutPause   time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.RateLimitPause <= 0 {
		p.RateLimitPause = DefaultRateLimitPause
	}
	if p.TimeoutPause <= 0 {
		p.TimeoutPause = DefaultTimeoutPause
	}
	return p
}

// Do drives attempt through the two-state retry machine.
func (p RetryPolicy) Do(ctx context.Context, attempt func(context.Context) (string, error)) (string, error) {
	p = p.withDefaults()
	state := stateFirstAttempt
	for {
		out, err := attempt(ctx)
		if err == nil {
			return out, nil
		}
		if state == stateRetrying {
			return "", err
		}

		var pause time.Duration
		switch classify(err) {
		case retryRateLimited:
			pause = p.RateLimitPause
		case retryTimedOut:
			pause = p.TimeoutPause
		default:
			return "", err
		}

		state = stateRetrying
		t := time.NewTimer(pause)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		}
	}
}

func classify(err error) retryClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests {
		return retryRateLimited
	}
	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		return retryTimedOut
	}
	return retryNone
}

// timeoutErr reports whether a transport-level error was a deadline problem.
func timeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
