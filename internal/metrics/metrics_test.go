package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	// registering the same names twice must panic
	assert.Panics(t, func() { NewCollector(reg) })
}

func TestRecordRequest(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordRequest(http.MethodGet, "/api/v1/students/{id}", http.StatusNotFound, 15*time.Millisecond)
	c.RecordRequest(http.MethodGet, "/api/v1/students/{id}", http.StatusNotFound, 5*time.Millisecond)
	c.RecordRequest(http.MethodPost, "/api/v1/students", http.StatusCreated, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "/api/v1/students/{id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "/api/v1/students", "201")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.duration))
}

func TestRecordRejection(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordRejection("duplicate_email")
	c.RecordRejection("duplicate_email")
	c.RecordRejection("not_found")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.rejections.WithLabelValues("duplicate_email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejections.WithLabelValues("not_found")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRejection("not_found")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `students_domain_rejections_total{reason="not_found"} 1`)
}
