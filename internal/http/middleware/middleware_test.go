package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelcruzl/students-api/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

// --- trace id ---

func TestTraceID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	h := NewTraceIDMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(TraceIDHeader)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	got := rec.Header().Get(TraceIDHeader)
	assert.Len(t, got, 36)
	assert.Equal(t, got, seen)
}

func TestTraceID_ReusesIncomingHeader(t *testing.T) {
	var buf bytes.Buffer
	h := NewTraceIDMiddleware(jsonLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(TraceIDHeader))
	assert.Equal(t, "abc-123", lastLogLine(t, &buf)["trace_id"])
}

// --- logging ---

func TestLogging_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			h := NewLoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/students/1", nil)
			req = req.WithContext(logger.WithContext(req.Context(), jsonLogger(&buf)))
			h.ServeHTTP(httptest.NewRecorder(), req)

			entry := lastLogLine(t, &buf)
			assert.Equal(t, "http_request", entry["msg"])
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "GET", entry["method"])
			assert.Equal(t, "/api/v1/students/1", entry["path"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Contains(t, entry, "duration_ms")
		})
	}
}

func TestLogging_ImplicitOK(t *testing.T) {
	var buf bytes.Buffer
	h := NewLoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hi"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithContext(req.Context(), jsonLogger(&buf)))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, float64(http.StatusOK), lastLogLine(t, &buf)["status"])
}

// --- recovery ---

func TestRecovery_ReturnsInternalServerError(t *testing.T) {
	h := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithContext(req.Context(), logger.Nop()))
	rec := httptest.NewRecorder()

	assert.NotPanics(t, func() { h.ServeHTTP(rec, req) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","error":"internal server error"}`, rec.Body.String())
}

func TestRecovery_KeepsStartedResponse(t *testing.T) {
	h := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial"))
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestRecovery_PanicCountedByOuterMetrics(t *testing.T) {
	rec := &recorderStub{}
	h := NewMetricsMiddleware(rec)(NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	require.Len(t, rec.got, 1)
	assert.Equal(t, http.StatusInternalServerError, rec.got[0].status)
}

func TestRecovery_PassesThrough(t *testing.T) {
	h := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

// --- metrics ---

type observation struct {
	method, route string
	status        int
}

type recorderStub struct {
	got []observation
}

func (r *recorderStub) RecordRequest(method, route string, status int, _ time.Duration) {
	r.got = append(r.got, observation{method, route, status})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	rec := &recorderStub{}

	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(rec))
	r.Get("/api/v1/students/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/students/42", nil))

	require.Len(t, rec.got, 1)
	assert.Equal(t, observation{"GET", "/api/v1/students/{id}", http.StatusNotFound}, rec.got[0])
}

func TestMetrics_WithoutChiContext(t *testing.T) {
	rec := &recorderStub{}
	h := NewMetricsMiddleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Len(t, rec.got, 1)
	assert.Equal(t, "unmatched", rec.got[0].route)
	assert.Equal(t, http.StatusOK, rec.got[0].status)
}

func TestStatusRecorder_ReusesExisting(t *testing.T) {
	inner := newStatusRecorder(httptest.NewRecorder())

	assert.Same(t, inner, newStatusRecorder(inner))
}
