package fetcher

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is wrapped by NetworkError when the URL is not absolute http(s).
	ErrInvalidURL = errors.New("invalid url: must be an absolute http(s) url")

	// ErrBodyTooLarge is wrapped by NetworkError when the body exceeds Options.MaxBodySize.
	ErrBodyTooLarge = errors.New("response body too large")

	errBadStatus = errors.New("unexpected status")
)

// NetworkError reports a connection failure, timeout or non-success status.
type NetworkError struct {
	URL string
	// StatusCode is zero when no response was received.
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// EmptyResponseError reports a successful response without a body.
type EmptyResponseError struct {
	URL string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("GET %s: empty response body", e.URL)
}
