package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Messages used when no response was received.
const (
	MessageNetwork = "network error"
	MessageTimeout = "timeout"
)

// HTTPError is a failed backend call. Status is 0 when no response arrived.
type HTTPError struct {
	Status  int
	Message string
	RawBody []byte
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// Timeout reports whether the request gave up waiting for a response.
func (e *HTTPError) Timeout() bool {
	return e.Status == 0 && e.Message == MessageTimeout
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Status
	}
	return 0
}

// IsStatus reports whether err is an *HTTPError with the given status.
func IsStatus(err error, status int) bool {
	return StatusOf(err) == status
}

// IsNotFound is shorthand for IsStatus(err, 404).
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// IsTimeout reports whether err is a client-side timeout.
func IsTimeout(err error) bool {
	var herr *HTTPError
	return errors.As(err, &herr) && herr.Timeout()
}
