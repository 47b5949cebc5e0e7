package mid

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/chainforge/ledger/foundation/web"
)

// Panics recovers from panics in the handler chain below it and converts
// them into plain errors so the Errors middleware can respond cleanly
// instead of the connection dying.
func Panics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					err = fmt.Errorf("panic: %v: %s", rec, string(trace))
				}
			}()

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
