package transport

import (
	"errors"
	"fmt"
	"net"
)

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.Status, e.Body)
}

// IsTransient reports whether an error is worth retrying: network-level
// failures and 5xx responses. 4xx responses and decode failures are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// url.Error wraps dial/read failures that don't implement net.Error
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
