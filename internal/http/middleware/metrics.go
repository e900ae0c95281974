package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// RequestRecorder receives one observation per finished request.
type RequestRecorder interface {
	RecordRequest(method, route string, status int, d time.Duration)
}

// NewMetricsMiddleware reports every request to rec, labelled with the
// chi route pattern (e.g. /api/v1/students/{id}) so ids do not explode
// label cardinality. Unmatched requests are reported as "unmatched".
func NewMetricsMiddleware(rec RequestRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := newStatusRecorder(w)

			next.ServeHTTP(sr, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			rec.RecordRequest(r.Method, route, sr.statusCode, time.Since(start))
		})
	}
}
