package mid

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	webv1 "github.com/qcbit/powchain/business/web/v1"
	"github.com/qcbit/powchain/foundation/web"
)

// Errors translates any error returned by a handler into the
// documented {success, message} JSON error shape, using the status
// code a RequestError carries or 500 otherwise.
func Errors(log *zap.SugaredLogger) web.Middleware {
	return func(handler web.Handler) web.Handler {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			traceID := web.GetTraceID(ctx)
			log.Errorw("request error", "traceid", traceID, "ERROR", err)

			statusCode := http.StatusInternalServerError
			var reqErr *webv1.RequestError
			if webv1.AsRequestError(err, &reqErr) {
				statusCode = reqErr.Status
			}

			if respErr := web.RespondError(ctx, w, statusCode, err.Error()); respErr != nil {
				return respErr
			}

			return nil
		}
	}
}
