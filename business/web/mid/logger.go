package mid

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/chainforge/ledger/foundation/web"
)

// Logger writes one structured log line per request, once the handler
// chain below it has run.
func Logger(log *zap.SugaredLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v, err := web.GetValues(ctx)
			if err != nil {
				return err
			}

			log.Infow("request started",
				"traceid", v.TraceID,
				"method", r.Method,
				"path", r.URL.Path,
				"remoteaddr", r.RemoteAddr,
			)

			err = handler(ctx, w, r)

			log.Infow("request completed",
				"traceid", v.TraceID,
				"method", r.Method,
				"path", r.URL.Path,
				"statuscode", v.StatusCode,
				"since", time.Since(v.Now),
			)

			return err
		}

		return h
	}

	return m
}
