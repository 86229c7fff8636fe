package eprel

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError marks a fetch failure worth retrying: timeouts, connection
// faults, 429 and 5xx responses. It never crosses the fetcher boundary; the
// fetcher either recovers or escalates to a FatalError.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient api error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient api error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError marks a fetch failure that must not be retried: auth and other
// 4xx responses, malformed payloads, violated preconditions, or an exhausted
// retry budget.
type FatalError struct {
	Status int
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fatal api error: %s: %v", e.Reason, e.Err)
	}
	return "fatal api error: " + e.Reason
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsFatal reports whether err is (or wraps) a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// classifyStatus maps an HTTP status to the error taxonomy.
func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= 500:
		return &TransientError{Status: status, Err: fmt.Errorf("upstream returned %d", status)}
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return &FatalError{Status: status, Reason: "authentication rejected"}
	default:
		return &FatalError{Status: status, Reason: fmt.Sprintf("upstream returned %d: %s", status, truncate(body, 200))}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
