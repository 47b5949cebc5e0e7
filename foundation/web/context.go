package web

import (
	"context"
	"errors"
	"time"
)

// Values carries request-scoped metadata through the context.
type Values struct {
	TraceID    string
	Now        time.Time
	StatusCode int
}

type ctxKey int

const valuesKey ctxKey = 1

func setValues(ctx context.Context, v *Values) context.Context {
	return context.WithValue(ctx, valuesKey, v)
}

// GetValues returns the Values stashed on ctx by the framework.
func GetValues(ctx context.Context) (*Values, error) {
	v, ok := ctx.Value(valuesKey).(*Values)
	if !ok {
		return nil, errors.New("web: values missing from context")
	}
	return v, nil
}

// GetTraceID returns ctx's trace id, or "00000000-0000-0000-0000-000000000000"
// if none is present.
func GetTraceID(ctx context.Context) string {
	v, ok := ctx.Value(valuesKey).(*Values)
	if !ok {
		return "00000000-0000-0000-0000-000000000000"
	}
	return v.TraceID
}

// SetStatusCode records the status code a handler is about to write, so
// logging middleware run after it can report it.
func SetStatusCode(ctx context.Context, statusCode int) error {
	v, ok := ctx.Value(valuesKey).(*Values)
	if !ok {
		return errors.New("web: values missing from context")
	}
	v.StatusCode = statusCode
	return nil
}

// =============================================================================

// shutdownError triggers App.SignalShutdown when returned from a handler.
type shutdownError struct {
	Message string
}

// NewShutdownError wraps message as an error that the framework
// recognizes as a request to begin a graceful shutdown.
func NewShutdownError(message string) error {
	return &shutdownError{message}
}

func (e *shutdownError) Error() string {
	return e.Message
}

// IsShutdown reports whether err was created by NewShutdownError.
func IsShutdown(err error) bool {
	var se *shutdownError
	return errors.As(err, &se)
}
