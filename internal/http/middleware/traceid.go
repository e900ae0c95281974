// Package middleware contains the HTTP middleware chain shared by every
// route: trace ids, access logging, metrics and panic recovery.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/angelcruzl/students-api/internal/logger"
	"github.com/google/uuid"
)

// TraceIDHeader is read from the request and echoed on the response.
const TraceIDHeader = "X-Trace-ID"

// NewTraceIDMiddleware tags each request with a trace id (taken from the
// X-Trace-ID header or freshly generated) and stores a child of base
// carrying it in the request context.
func NewTraceIDMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceIDHeader)
			if traceID == "" {
				traceID = uuid.NewString()
			}

			l := base.With(slog.String("trace_id", traceID))
			r = r.WithContext(logger.WithContext(r.Context(), l))

			w.Header().Set(TraceIDHeader, traceID)
			next.ServeHTTP(w, r)
		})
	}
}
