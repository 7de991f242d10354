package middleware

import (
	"net/http"
	"runtime/debug"

	"dermsched/pkg/errors"
	httputil "dermsched/pkg/http"
	"dermsched/pkg/logger"
)

// Recovery converts panics in downstream handlers into 500 responses.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered",
						"panic", rec,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					httputil.WriteError(w, errors.Internal("unexpected server error", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
