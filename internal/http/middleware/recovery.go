package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/angelcruzl/students-api/internal/logger"
	"github.com/angelcruzl/students-api/internal/utils/response"
)

var errInternal = errors.New("internal server error")

// NewRecoveryMiddleware turns a panic in a handler into a 500 response
// instead of a dropped connection. If the handler already started its
// response, the panic is only logged.
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := newStatusRecorder(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.FromContext(r.Context()).Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				if sr.written {
					return
				}
				response.WriteJSON(sr, http.StatusInternalServerError, response.GeneralError(errInternal))
			}()
			next.ServeHTTP(sr, r)
		})
	}
}
