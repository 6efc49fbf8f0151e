// Package v1 holds business-level types shared across the node's
// HTTP handlers, independent of the wire-framing in foundation/web.
package v1

import "errors"

// RequestError wraps an error with the HTTP status code a handler
// wants the web framework to respond with, so middleware doesn't have
// to guess.
type RequestError struct {
	Err    error
	Status int
}

// NewRequestError constructs a RequestError from an underlying error
// and the status code it should surface as.
func NewRequestError(err error, status int) error {
	return &RequestError{Err: err, Status: status}
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

// AsRequestError is a thin errors.As wrapper that reports whether a
// *RequestError is anywhere in err's chain and, if so, stores it in
// target.
func AsRequestError(err error, target **RequestError) bool {
	return errors.As(err, target)
}
