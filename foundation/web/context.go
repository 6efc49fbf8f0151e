package web

import (
	"context"
	"errors"
	"time"
)

type ctxKey int

const valuesKey ctxKey = 1

// Values carries request-scoped tracing information through context.
type Values struct {
	TraceID    string
	Now        time.Time
	StatusCode int
}

// GetValues returns the Values stashed in ctx by the App's request
// handler. It fails if called outside a request (e.g. from a test
// that didn't build its context through App.Handle).
func GetValues(ctx context.Context) (*Values, error) {
	v, ok := ctx.Value(valuesKey).(*Values)
	if !ok {
		return nil, errors.New("web value missing from context")
	}
	return v, nil
}

// GetTraceID returns the trace id from ctx, or a zero-valued one if
// none is present.
func GetTraceID(ctx context.Context) string {
	v, ok := ctx.Value(valuesKey).(*Values)
	if !ok {
		return "00000000-0000-0000-0000-000000000000"
	}
	return v.TraceID
}

// shutdownError is returned by a handler to request a graceful
// shutdown of the service instead of just failing the request.
type shutdownError struct {
	Message string
}

func (e *shutdownError) Error() string { return e.Message }

// NewShutdownError wraps a message as a shutdown-triggering error.
func NewShutdownError(message string) error {
	return &shutdownError{Message: message}
}

func isShutdownError(err error) bool {
	var se *shutdownError
	return errors.As(err, &se)
}
