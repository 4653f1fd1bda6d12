package ingest

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/sony/gobreaker"
)

// APIError is an unexpected upstream response. Kept distinct from network
// errors because the two need different retry behaviour: a 429 is worth
// retrying after a wait, a 400 means the request itself is wrong.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
}

// retryableStatus is the set of HTTP statuses worth retrying: rate limits
// and server-side errors. Everything else non-200 is permanent.
var retryableStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// IsTransient reports whether an error is worth retrying. This is the single
// classification function for the whole fetch path.
//
// Transient: network-level failures (timeouts, connection refused, DNS) and
// APIError with status 429/500/502/503/504.
//
// Permanent: any other APIError (4xx, structural failures), an open circuit
// breaker, and everything else.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// An open breaker means the upstream is already known to be unhealthy;
	// burning the remaining retry budget against it helps nobody.
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retryableStatus[apiErr.StatusCode]
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
