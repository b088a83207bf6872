package constants

import "net/http"

// CodedError is an error that carries the HTTP status code the API layer
// should answer with.
type CodedError struct {
	code int
	msg  string
}

func NewCodedError(code int, msg string) *CodedError {
	return &CodedError{code: code, msg: msg}
}

func (e *CodedError) Error() string {
	return e.msg
}

func (e *CodedError) Code() int {
	return e.code
}

var (
	ErrUnauthorized  = NewCodedError(http.StatusUnauthorized, "unauthorized")
	ErrDBNotFound    = NewCodedError(http.StatusNotFound, "not found")
	ErrMissingAPIKey = NewCodedError(http.StatusUnauthorized, "kosis api key is not configured")
	ErrBadRequest    = NewCodedError(http.StatusBadRequest, "bad request")
)
