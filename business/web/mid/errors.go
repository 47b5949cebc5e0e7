package mid

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/chainforge/ledger/business/web/errs"
	"github.com/chainforge/ledger/foundation/web"
)

// Errors handles errors coming out of the call chain. It detects normal
// application errors which are used to respond to the client in a
// uniform way. Unexpected errors (implementation bugs) are logged and
// hidden from the client behind a generic 500.
func Errors(log *zap.SugaredLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if err := handler(ctx, w, r); err != nil {
				log.Errorw("request error", "traceid", web.GetTraceID(ctx), "err", err)

				if trusted := errs.GetTrusted(err); trusted != nil {
					resp := errs.Response{Error: trusted.Error()}
					if err := web.Respond(ctx, w, resp, trusted.Status); err != nil {
						return err
					}
					return nil
				}

				resp := errs.Response{Error: "internal server error"}
				if err := web.Respond(ctx, w, resp, http.StatusInternalServerError); err != nil {
					return err
				}

				if web.IsShutdown(err) {
					return err
				}
			}

			return nil
		}

		return h
	}

	return m
}
