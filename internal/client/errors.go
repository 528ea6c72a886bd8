package client

import (
	"errors"
	"fmt"
)

// ErrAuthFailed marks credential rejection or an unreachable auth
// endpoint. It blocks all fetches until the next authenticate attempt.
var ErrAuthFailed = errors.New("authentication failed")

// APIError is an application-level failure: the endpoint answered but
// with a non-200 errorcode. Never retried.
type APIError struct {
	Endpoint string
	Code     int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error from %s: errorcode=%d", e.Endpoint, e.Code)
}

// HTTPError is a transport-level failure that survived the retry budget
// (or was not retryable to begin with).
type HTTPError struct {
	Endpoint   string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error from %s: status=%d", e.Endpoint, e.StatusCode)
}
