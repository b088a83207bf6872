package kosis

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError is the one fatal precondition failure: building a client
// without a credential. Callers are expected to check for a credential first
// and branch to demo mode instead of ever seeing this.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "kosis: " + e.Msg
}

type ErrorKind string

const (
	// KindHTTPError: an HTTP response was received with a non-OK status or a
	// provider-level error payload.
	KindHTTPError ErrorKind = "http_error"
	// KindNoResponse: the request timed out or the network failed.
	KindNoResponse ErrorKind = "no_response"
	// KindRequestFailed: request construction itself failed.
	KindRequestFailed ErrorKind = "request_failed"
	// KindBadPayload: the response body had no recognizable shape.
	KindBadPayload ErrorKind = "bad_payload"
)

// APIError is the single error type raised by the client, tagged with the
// originating operation and, where applicable, the table id.
type APIError struct {
	Op         string
	TableID    string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.TableID != "" {
		return fmt.Sprintf("kosis: %s [%s]: %s", e.Op, e.TableID, msg)
	}
	return fmt.Sprintf("kosis: %s: %s", e.Op, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is an authentication/authorization flavored
// API failure. Dispatch is on the structured status code; the legacy message
// substring check is kept as a fallback for errors that arrive unwrapped.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized ||
			apiErr.StatusCode == http.StatusForbidden
	}
	return false
}
