package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var errRateLimited = errors.New("too many requests")

// FetchError is a terminal fetch failure for one URL.
type FetchError struct {
	URL      string
	Status   int // 0 when no response was received
	Attempts int
	Err      error

	timeout bool
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d (%s) after %d attempt(s): %v",
			e.URL, e.Status, http.StatusText(e.Status), e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RateLimited reports a 429 response, the only retryable class.
func (e *FetchError) RateLimited() bool { return e.Status == http.StatusTooManyRequests }

// Timeout reports that the per-attempt deadline expired.
func (e *FetchError) Timeout() bool { return e.timeout }
