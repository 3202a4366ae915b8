package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RecoveryMiddleware turns a handler panic into a 500 response. The report names
// the authoring session when the handler had resolved one. If the handler had
// already started its response, the connection is aborted instead.
func RecoveryMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := wrapResponseWriter(w)
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}
				fields := append(requestFields(r.Context()),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("error", err),
					zap.Stack("stack"),
				)
				logger.Error("panic recovered", fields...)

				if ww.wroteHeader {
					panic(http.ErrAbortHandler)
				}
				ww.Header().Set("Content-Type", "application/json")
				ww.WriteHeader(http.StatusInternalServerError)
				ww.Write([]byte(`{"error":"internal server error"}`))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
