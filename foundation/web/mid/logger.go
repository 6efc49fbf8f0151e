// Package mid holds the small set of middleware every route in the
// node's HTTP surface is wrapped with: request logging, panic
// recovery, and error translation.
package mid

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/qcbit/powchain/foundation/web"
)

// Logger writes two structured log lines per request: one before and
// one after the handler runs.
func Logger(log *zap.SugaredLogger) web.Middleware {
	return func(handler web.Handler) web.Handler {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v, err := web.GetValues(ctx)
			if err != nil {
				return err
			}

			log.Infow("request started", "traceid", v.TraceID, "method", r.Method, "path", r.URL.Path)

			err = handler(ctx, w, r)

			log.Infow("request completed", "traceid", v.TraceID, "method", r.Method, "path", r.URL.Path,
				"statuscode", v.StatusCode, "since", time.Since(v.Now).String())

			return err
		}
	}
}
