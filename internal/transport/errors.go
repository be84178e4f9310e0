package transport

import (
	"errors"
	"fmt"
)

// ErrInvalidProxy is returned when the configured proxy URL cannot be used.
var ErrInvalidProxy = errors.New("invalid proxy URL: expected http://, https://, socks5:// or socks5h:// with a host")

// StatusError is returned by HTTPFetcher.Fetch for non-2xx responses.
type StatusError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status code received.
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}
