package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/vyrodovalexey/apigateway/internal/observability"
	"github.com/vyrodovalexey/apigateway/internal/util"
)

var errPanic = errors.New("panic in handler")

// Recovery returns a middleware that turns a panic into a 500 INTERNAL_ERROR.
func Recovery(logger observability.Logger, metrics *Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.WithContext(r.Context()).Error("panic recovered",
						observability.String("path", r.URL.Path),
						observability.String("method", r.Method),
						observability.Any("error", err),
						observability.String("stack", string(debug.Stack())),
					)
					metrics.recordPanic()

					util.WriteError(w, r.URL.Path, util.NewInternalError(errPanic))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
