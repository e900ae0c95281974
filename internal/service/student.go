// Package service holds the domain rules for Student records: an email
// may belong to only one student, and update/delete require the record
// to exist. Persistence is delegated to storage.Storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/angelcruzl/students-api/internal/logger"
	"github.com/angelcruzl/students-api/internal/storage"
	"github.com/angelcruzl/students-api/internal/types"
)

// Domain errors. Both are returned wrapped with a human-readable message;
// match them with errors.Is.
var (
	ErrStudentNotFound = errors.New("student not found")
	ErrDuplicateEmail  = errors.New("duplicate email")
)

// Rejection reasons reported to the RejectionRecorder.
const (
	ReasonDuplicateEmail = "duplicate_email"
	ReasonNotFound       = "not_found"
)

// RejectionRecorder counts requests the domain rules turned down.
type RejectionRecorder interface {
	RecordRejection(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRejection(string) {}

// StudentService implements the student use cases on top of a Storage.
type StudentService struct {
	storage  storage.Storage
	recorder RejectionRecorder
}

// NewStudentService builds a StudentService. recorder may be nil.
func NewStudentService(s storage.Storage, recorder RejectionRecorder) *StudentService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &StudentService{storage: s, recorder: recorder}
}

// ListAll returns every student in storage order.
func (s *StudentService) ListAll(ctx context.Context) ([]types.Student, error) {
	students, err := s.storage.GetStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Create persists candidate unless its email is already in use.
//
// The email lookup is a fast path only: two concurrent creates can both
// pass it, so the storage UNIQUE constraint has the final say.
func (s *StudentService) Create(ctx context.Context, candidate types.Student) (types.Student, error) {
	log := logger.FromContext(ctx)

	_, err := s.storage.GetStudentByEmail(ctx, candidate.Email)
	switch {
	case err == nil:
		return types.Student{}, s.duplicate(ctx, candidate.Email)
	case !errors.Is(err, storage.ErrNotFound):
		return types.Student{}, fmt.Errorf("create student: lookup email: %w", err)
	}

	candidate.ID = 0
	saved, err := s.storage.Save(ctx, candidate)
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return types.Student{}, s.duplicate(ctx, candidate.Email)
		}
		return types.Student{}, fmt.Errorf("create student: %w", err)
	}

	log.Debug("student stored", slog.Int64("id", saved.ID))
	return saved, nil
}

// GetByID returns the student with the given id, or nil when there is
// none. It errors only when storage fails.
func (s *StudentService) GetByID(ctx context.Context, id int64) (*types.Student, error) {
	student, err := s.storage.GetStudentByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &student, nil
}

// Update replaces first name, last name and email of the student whose
// id is candidate.ID.
func (s *StudentService) Update(ctx context.Context, candidate types.Student) (types.Student, error) {
	if _, err := s.storage.GetStudentByID(ctx, candidate.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.Student{}, s.notFound(ctx, candidate.ID)
		}
		return types.Student{}, fmt.Errorf("update student: lookup id: %w", err)
	}

	saved, err := s.storage.Save(ctx, candidate)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// deleted between the lookup and the write
		return types.Student{}, s.notFound(ctx, candidate.ID)
	case errors.Is(err, storage.ErrEmailTaken):
		return types.Student{}, s.duplicate(ctx, candidate.Email)
	case err != nil:
		return types.Student{}, fmt.Errorf("update student: %w", err)
	}

	return saved, nil
}

// Delete removes the student with the given id.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.storage.GetStudentByID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return s.notFound(ctx, id)
		}
		return fmt.Errorf("delete student: lookup id: %w", err)
	}

	if err := s.storage.DeleteStudentByID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return s.notFound(ctx, id)
		}
		return fmt.Errorf("delete student: %w", err)
	}

	return nil
}

func (s *StudentService) duplicate(ctx context.Context, email string) error {
	s.recorder.RecordRejection(ReasonDuplicateEmail)
	logger.FromContext(ctx).Info("student rejected", slog.String("reason", ReasonDuplicateEmail))
	return fmt.Errorf("%w: student with email %s already exists", ErrDuplicateEmail, email)
}

func (s *StudentService) notFound(ctx context.Context, id int64) error {
	s.recorder.RecordRejection(ReasonNotFound)
	logger.FromContext(ctx).Info("student rejected",
		slog.String("reason", ReasonNotFound), slog.Int64("id", id))
	return fmt.Errorf("%w: student with id %d not found", ErrStudentNotFound, id)
}
