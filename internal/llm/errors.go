package llm

import (
	"fmt"

	"github.com/stackbay/inbox-agent/internal/redact"
)

// APIError is a non-2xx response from the completion service. Responses other
// than 429 are terminal; 429 is consumed by the one-shot retry policy and only
// surfaces when the retry attempt fails too.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e == nil {
		return "completion api error"
	}
	body := redact.Secrets(e.Body)
	if body == "" {
		return fmt.Sprintf("completion api error: status %d", e.Status)
	}
	return fmt.Sprintf("completion api error: status %d: %s", e.Status, body)
}

// TimeoutError is a completion call that exceeded its per-request deadline.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	if e == nil || e.Err == nil {
		return "completion request timed out"
	}
	return "completion request timed out: " + redact.Secrets(e.Err.Error())
}

func (e *TimeoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
