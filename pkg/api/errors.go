package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the API client.
var (
	// ErrInvalidBaseURL is returned by New for an unparsable or relative base URL.
	ErrInvalidBaseURL = errors.New("api: invalid base url")

	// ErrRequestFailed wraps transport failures: DNS, connection, timeouts.
	ErrRequestFailed = errors.New("api: request failed")

	// ErrDecodeResponse is returned when a 2xx body cannot be decoded.
	ErrDecodeResponse = errors.New("api: failed to decode response")
)

// Error is a non-2xx response from the storefront API.
type Error struct {
	Message string `json:"message"`
	Method  string `json:"-"`
	Path    string `json:"-"`
	Status  int    `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// StatusCode returns the HTTP status of the response.
func (e *Error) StatusCode() int {
	return e.Status
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}
