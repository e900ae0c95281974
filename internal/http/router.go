// Package http wires the handlers and middleware into a chi router.
package http

import (
	"log/slog"
	"net/http"

	"github.com/angelcruzl/students-api/internal/http/handlers/student"
	"github.com/angelcruzl/students-api/internal/http/middleware"
	"github.com/go-chi/chi/v5"
)

// StudentsBasePath is the prefix of every Student route.
const StudentsBasePath = "/api/v1/students"

// RouterDeps groups what NewRouter needs.
type RouterDeps struct {
	Logger   *slog.Logger
	Students student.Service

	// Metrics is optional; when nil no request metrics are recorded.
	Metrics middleware.RequestRecorder

	// MetricsHandler is mounted at MetricsPath when both are set.
	MetricsPath    string
	MetricsHandler http.Handler
}

// NewRouter builds the route table:
//
//	GET    /api/v1/students        → list all students
//	POST   /api/v1/students        → create a new student
//	GET    /api/v1/students/{id}   → get one student by ID
//	PUT    /api/v1/students/{id}   → update a student
//	DELETE /api/v1/students/{id}   → delete a student
//
// Middleware order: trace id → access log → metrics → recovery. Recovery
// sits innermost so panics still reach the log and metrics as a 500.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewTraceIDMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware())
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	r.Route(StudentsBasePath, func(r chi.Router) {
		r.Get("/", student.GetList(deps.Students))
		r.Post("/", student.New(deps.Students))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", student.GetByID(deps.Students))
			r.Put("/", student.Update(deps.Students))
			r.Delete("/", student.Delete(deps.Students))
		})
	})

	if deps.MetricsHandler != nil && deps.MetricsPath != "" {
		r.Method(http.MethodGet, deps.MetricsPath, deps.MetricsHandler)
	}

	return r
}
