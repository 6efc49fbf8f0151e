package mid

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/qcbit/powchain/foundation/web"
)

// Panics recovers a panicking handler into an error so Errors can
// respond to it instead of the connection dying silently.
func Panics() web.Middleware {
	return func(handler web.Handler) web.Handler {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("panic: %v\n%s", rec, debug.Stack())
				}
			}()

			return handler(ctx, w, r)
		}
	}
}
