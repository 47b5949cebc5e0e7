// Package web is a thin collaborator around httptreemux: it adapts
// context-aware handlers into http.HandlerFunc, tracks per-request
// metadata (trace id, status code, timing), and wires a shutdown signal
// so a panicking or misbehaving handler can trigger a graceful exit
// instead of leaving the process in an unknown state.
package web

import (
	"context"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/dimfeld/httptreemux/v5"
	"github.com/google/uuid"
)

// Handler is the signature every application handler must implement.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// Middleware wraps a Handler with cross-cutting behavior and returns the
// wrapped Handler.
type Middleware func(Handler) Handler

// App is the entrypoint into the web framework, wrapping an
// httptreemux.ContextMux with application-wide middleware and a
// shutdown channel.
type App struct {
	mux      *httptreemux.ContextMux
	shutdown chan os.Signal
	mw       []Middleware
}

// NewApp constructs an App, applying mw to every handler registered
// through Handle.
func NewApp(shutdown chan os.Signal, mw ...Middleware) *App {
	return &App{
		mux:      httptreemux.NewContextMux(),
		shutdown: shutdown,
		mw:       mw,
	}
}

// ServeHTTP implements http.Handler by delegating to the underlying mux.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// SignalShutdown asks the process to begin a graceful shutdown, the
// escape hatch a handler uses when it hits an error serious enough that
// continuing to serve requests isn't safe.
func (a *App) SignalShutdown() {
	a.shutdown <- syscall.SIGTERM
}

// Handle registers handler, wrapped by both its own middleware and the
// App's, at method and path.
func (a *App) Handle(method, path string, handler Handler, mw ...Middleware) {
	handler = wrapMiddleware(mw, handler)
	handler = wrapMiddleware(a.mw, handler)

	h := func(w http.ResponseWriter, r *http.Request) {
		ctx := setValues(r.Context(), &Values{
			TraceID: uuid.NewString(),
			Now:     time.Now(),
		})

		if err := handler(ctx, w, r); err != nil {
			if IsShutdown(err) {
				a.SignalShutdown()
			}
		}
	}

	a.mux.Handle(method, path, h)
}

func wrapMiddleware(mw []Middleware, handler Handler) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		if mw[i] != nil {
			handler = mw[i](handler)
		}
	}
	return handler
}
