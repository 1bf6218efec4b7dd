// Package apierr defines the error taxonomy shared by the Canvas and
// Notion API clients. Clients classify HTTP outcomes into these kinds;
// retry policy lives with the caller, never in the client.
package apierr

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Standard errors
var (
	ErrAuth     = errors.New("api: authentication failed")
	ErrNotFound = errors.New("api: not found")
)

// RateLimitError indicates an HTTP 429 response. RetryAfter carries the
// server-provided delay hint, or zero when the server sent none.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("api: rate limited, retry after %s", e.RetryAfter)
	}
	return "api: rate limited"
}

// TransientError wraps timeouts, connection resets and 5xx responses
// that are worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("api: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FromStatus classifies a non-2xx HTTP status into the taxonomy.
// Unrecognized 4xx statuses come back as plain errors and are not
// retried.
func FromStatus(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w (HTTP %d)", ErrAuth, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w (HTTP %d)", ErrNotFound, status)
	case status == http.StatusTooManyRequests:
		return &RateLimitError{}
	case status >= 500:
		return &TransientError{Err: fmt.Errorf("HTTP %d: %s", status, truncate(body, 200))}
	default:
		return fmt.Errorf("api: HTTP %d: %s", status, truncate(body, 200))
	}
}

// FromResponse classifies a response, reading the Retry-After header for
// rate limit hints. The body must already be drained by the caller.
func FromResponse(resp *http.Response, body string) error {
	err := FromStatus(resp.StatusCode, body)
	var rl *RateLimitError
	if errors.As(err, &rl) {
		rl.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return err
}

// WrapTransport classifies a transport-level error (timeout, connection
// reset, DNS failure) as transient.
func WrapTransport(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err should be retried with backoff.
// Rate limits are retriable too, but carry their own delay hint; use
// RetryAfterHint to read it.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsRetriable reports whether err is transient or a rate limit.
func IsRetriable(err error) bool {
	var rl *RateLimitError
	return IsTransient(err) || errors.As(err, &rl)
}

// RetryAfterHint returns the server-provided delay for rate limit
// errors, or zero.
func RetryAfterHint(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
