// Package storage defines the Storage interface, a contract that any
// database backend must satisfy to work with this application.
//
// The service layer depends only on this interface, so the SQLite and
// PostgreSQL backends are interchangeable and tests can pass a mock.
package storage

//go:generate mockgen -source=storage.go -destination=../mock/storage_mock.go -package=mock

import (
	"context"
	"errors"

	"github.com/angelcruzl/students-api/internal/types"
)

// Sentinel errors returned by every backend. Callers match them with
// errors.Is.
var (
	// ErrNotFound is returned when a lookup by id or email matches no row.
	ErrNotFound = errors.New("student not found")

	// ErrEmailTaken is returned when an insert or update violates the
	// UNIQUE constraint on the email column.
	ErrEmailTaken = errors.New("student email already taken")
)

// Storage is the database contract.
type Storage interface {
	// Save inserts the student when ID is zero and replaces the row with
	// the same primary key otherwise. It returns the stored record,
	// including the generated ID on insert.
	Save(ctx context.Context, student types.Student) (types.Student, error)

	// GetStudentByID fetches a single student by primary key.
	// Returns ErrNotFound if no row matches.
	GetStudentByID(ctx context.Context, id int64) (types.Student, error)

	// GetStudentByEmail fetches a single student by email.
	// Returns ErrNotFound if no row matches.
	GetStudentByEmail(ctx context.Context, email string) (types.Student, error)

	// GetStudents returns every student ordered by id.
	// Returns an empty slice (not nil) if there are no students.
	GetStudents(ctx context.Context) ([]types.Student, error)

	// DeleteStudentByID removes a student record permanently.
	// Returns ErrNotFound if no row was deleted.
	DeleteStudentByID(ctx context.Context, id int64) error

	// Close releases the underlying connection pool.
	Close() error
}
