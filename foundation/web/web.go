// Package web provides a thin layer over httptreemux that standardizes
// how handlers are written: a Handler returns an error instead of
// writing one, middleware wraps Handler to Handler, and a context
// value carries per-request tracing information.
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

// Handler is the signature every application handler implements.
// Returning an error lets a single middleware translate it into a
// response instead of every handler duplicating that logic.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// App is the entrypoint into the web framework: it wraps a
// httptreemux router, a shutdown channel used to trigger a graceful
// shutdown from inside a handler, and the middleware every route is
// wrapped with.
type App struct {
	*httptreemux.ContextMux
	shutdown chan os.Signal
	mw       []Middleware
}

// NewApp constructs an App, applying mw to every route registered
// through Handle.
func NewApp(shutdown chan os.Signal, mw ...Middleware) *App {
	return &App{
		ContextMux: httptreemux.NewContextMux(),
		shutdown:   shutdown,
		mw:         mw,
	}
}

// SignalShutdown is used by a handler to trigger a graceful shutdown
// of the service, e.g. on an unrecoverable error.
func (a *App) SignalShutdown() {
	a.shutdown <- syscall.SIGTERM
}

// Handle associates a Handler, wrapped by the app's middleware plus
// any route-specific middleware, with an HTTP method and a versioned
// path.
func (a *App) Handle(method string, version string, path string, handler Handler, mw ...Middleware) {
	handler = wrapMiddleware(mw, handler)
	handler = wrapMiddleware(a.mw, handler)

	h := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		v := Values{
			TraceID: uuid.NewString(),
			Now:     time.Now(),
		}
		ctx = context.WithValue(ctx, valuesKey, &v)

		if err := handler(ctx, w, r); err != nil {
			if isShutdownError(err) {
				a.SignalShutdown()
			}
		}
	}

	finalPath := path
	if version != "" {
		finalPath = "/" + version + path
	}

	a.ContextMux.Handle(method, finalPath, h)
}

// Param is a thin wrapper around httptreemux's path-parameter lookup.
func Param(r *http.Request, key string) string {
	return httptreemux.ContextParams(r.Context())[key]
}
