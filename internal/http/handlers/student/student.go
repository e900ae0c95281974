// Package student contains all HTTP handlers for the Student resource.
//
// Each exported function is a factory: it receives its dependencies once
// at route registration and returns the http.HandlerFunc that runs on
// every request.
//
//	r.Post("/", student.New(svc))
package student

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/angelcruzl/students-api/internal/logger"
	"github.com/angelcruzl/students-api/internal/service"
	"github.com/angelcruzl/students-api/internal/types"
	"github.com/angelcruzl/students-api/internal/utils/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Service is the subset of the domain service the handlers need.
type Service interface {
	ListAll(ctx context.Context) ([]types.Student, error)
	Create(ctx context.Context, candidate types.Student) (types.Student, error)
	GetByID(ctx context.Context, id int64) (*types.Student, error)
	Update(ctx context.Context, candidate types.Student) (types.Student, error)
	Delete(ctx context.Context, id int64) error
}

var (
	errEmptyBody = errors.New("request body is empty")
	errInvalidID = errors.New("invalid id: must be an integer")
	errInternal  = errors.New("internal server error")
)

var errorStatusMap = map[error]int{
	service.ErrStudentNotFound: http.StatusNotFound,
	service.ErrDuplicateEmail:  http.StatusConflict,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// validate reports field names the way clients send them (firstName, not
// FirstName). A single instance caches struct metadata across requests.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// New handles POST /api/v1/students.
//
// Request body:
//
//	{ "firstName": "Angel", "lastName": "Cruz", "email": "me@angelcruzl.dev" }
//
// Success response (201 Created): the stored student, including its id.
//
// Error responses:
//
//	400 Bad Request: empty body, malformed JSON, or failed validation
//	409 Conflict   : another student already has this email
//	500 Internal   : database error
func New(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info("creating a student")

		student, ok := decodeStudent(w, r)
		if !ok {
			return
		}

		created, err := svc.Create(r.Context(), student)
		if err != nil {
			writeError(w, r, err)
			return
		}

		log.Info("student created", slog.Int64("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, created)
	}
}

// GetList handles GET /api/v1/students.
// Returns a JSON array of all students; [] (not null) when there are none.
func GetList(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("getting all students")

		students, err := svc.ListAll(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if students == nil {
			students = []types.Student{}
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// GetByID handles GET /api/v1/students/{id}.
//
// Success response (200 OK): the student.
//
// Error responses:
//
//	400 Bad Request: id is not a valid integer
//	404 Not Found  : no such student (empty body)
//	500 Internal   : database error
func GetByID(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		logger.FromContext(r.Context()).Info("getting a student", slog.Int64("id", id))

		student, err := svc.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if student == nil {
			response.WriteEmpty(w, http.StatusNotFound)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// Update handles PUT /api/v1/students/{id}.
// Replaces first name, last name and email. Any id in the body is ignored;
// the path id wins.
//
// Error responses:
//
//	400 Bad Request: invalid id, empty body, or validation failure
//	404 Not Found  : no such student (empty body)
//	409 Conflict   : the new email belongs to another student
//	500 Internal   : database error
func Update(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		log := logger.FromContext(r.Context())
		log.Info("updating a student", slog.Int64("id", id))

		candidate, ok := decodeStudent(w, r)
		if !ok {
			return
		}

		existing, err := svc.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if existing == nil {
			response.WriteEmpty(w, http.StatusNotFound)
			return
		}

		candidate.ID = existing.ID
		updated, err := svc.Update(r.Context(), candidate)
		if err != nil {
			if errors.Is(err, service.ErrStudentNotFound) {
				response.WriteEmpty(w, http.StatusNotFound)
				return
			}
			writeError(w, r, err)
			return
		}

		log.Info("student updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// Delete handles DELETE /api/v1/students/{id}.
//
// Success response (200 OK, text/plain):
//
//	Student with id 1 deleted successfully
//
// Error responses:
//
//	400 Bad Request: invalid id
//	404 Not Found  : no such student
//	500 Internal   : database error
func Delete(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		log := logger.FromContext(r.Context())
		log.Info("deleting a student", slog.Int64("id", id))

		if err := svc.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}

		log.Info("student deleted", slog.Int64("id", id))
		response.WriteText(w, http.StatusOK, fmt.Sprintf("Student with id %d deleted successfully", id))
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errInvalidID))
		return 0, false
	}
	return id, true
}

// decodeStudent reads and validates the request body. On failure it has
// already written the 400 response.
func decodeStudent(w http.ResponseWriter, r *http.Request) (types.Student, bool) {
	var student types.Student

	err := json.NewDecoder(r.Body).Decode(&student)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errEmptyBody))
		return types.Student{}, false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return types.Student{}, false
	}

	if err := validate.Struct(student); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
		} else {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		}
		return types.Student{}, false
	}

	return student, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	if status >= http.StatusInternalServerError {
		// details stay in the log
		logger.FromContext(r.Context()).Error("request failed", logger.Err(err))
		err = errInternal
	}
	response.WriteJSON(w, status, response.GeneralError(err))
}
