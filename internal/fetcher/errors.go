// Package fetcher holds the fetch errors shared by the transports and the
// render-promoting Fetcher that combines them.
package fetcher

import "errors"

var (
	// ErrEmptyBody means the server answered without content.
	ErrEmptyBody = errors.New("empty response body")
	// ErrHTTPStatus means the server answered with a status >= 400.
	ErrHTTPStatus = errors.New("http error status")
)
