package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/angelcruzl/students-api/internal/logger"
)

// NewLoggingMiddleware writes one structured "http_request" line per
// request with method, path, status and duration_ms. The level follows
// the status class: 5xx error, 4xx warn, everything else info.
//
// It uses the request-scoped logger, so it must run inside the trace id
// middleware to get trace_id on every line.
func NewLoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			durationMs := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)

			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.FromContext(r.Context()).LogAttrs(r.Context(), level, "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			)
		})
	}
}
