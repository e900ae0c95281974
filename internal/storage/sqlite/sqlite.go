// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite stores everything in a single file on disk. There is no network,
// no separate server process, and no installation beyond the driver, which
// makes it the default backend for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/angelcruzl/students-api/internal/config"
	"github.com/angelcruzl/students-api/internal/storage"
	"github.com/angelcruzl/students-api/internal/storage/migrations"
	"github.com/angelcruzl/students-api/internal/types"

	"github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at cfg.Storage.Path, applies the embedded
// migrations and returns a ready-to-use *SQLite.
//
// sql.Open does not connect; the first real connection happens on the
// first query (here, the migration).
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sql.Open("sqlite3", cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	if cfg.Storage.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Storage.MaxOpenConns)
	}

	if err := migrations.Up(db, migrations.DialectSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Save inserts a new row when student.ID is zero and updates the row with
// that primary key otherwise.
//
// Placeholders (?) keep user input out of the SQL text: the driver sends
// the query and the values separately.
func (s *SQLite) Save(ctx context.Context, student types.Student) (types.Student, error) {
	if student.ID == 0 {
		return s.insert(ctx, student)
	}
	return s.update(ctx, student)
}

func (s *SQLite) insert(ctx context.Context, student types.Student) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO students (first_name, last_name, email) VALUES (?, ?, ?)",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("Save: prepare insert: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, student.FirstName, student.LastName, student.Email)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, storage.ErrEmailTaken
		}
		return types.Student{}, fmt.Errorf("Save: exec insert: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return types.Student{}, fmt.Errorf("Save: last insert id: %w", err)
	}

	student.ID = lastID
	return student, nil
}

func (s *SQLite) update(ctx context.Context, student types.Student) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"UPDATE students SET first_name = ?, last_name = ?, email = ? WHERE id = ?",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("Save: prepare update: %w", err)
	}
	defer stmt.Close()

	// argument order matches the ? order: first_name, last_name, email, id
	result, err := stmt.ExecContext(ctx, student.FirstName, student.LastName, student.Email, student.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, storage.ErrEmailTaken
		}
		return types.Student{}, fmt.Errorf("Save: exec update: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return types.Student{}, fmt.Errorf("Save: rows affected: %w", err)
	}
	if affected == 0 {
		return types.Student{}, storage.ErrNotFound
	}

	return student, nil
}

// GetStudentByID fetches exactly one student row matched by primary key.
func (s *SQLite) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	return s.getOne(ctx, "GetStudentByID",
		"SELECT id, first_name, last_name, email FROM students WHERE id = ? LIMIT 1", id)
}

// GetStudentByEmail fetches exactly one student row matched by email.
func (s *SQLite) GetStudentByEmail(ctx context.Context, email string) (types.Student, error) {
	return s.getOne(ctx, "GetStudentByEmail",
		"SELECT id, first_name, last_name, email FROM students WHERE email = ? LIMIT 1", email)
}

func (s *SQLite) getOne(ctx context.Context, op, query string, arg any) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx, query)
	if err != nil {
		return types.Student{}, fmt.Errorf("%s: prepare: %w", op, err)
	}
	defer stmt.Close()

	var student types.Student

	// QueryRow never returns nil; a missing row surfaces on Scan.
	err = stmt.QueryRowContext(ctx, arg).Scan(
		&student.ID,
		&student.FirstName,
		&student.LastName,
		&student.Email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("%s: scan: %w", op, err)
	}

	return student, nil
}

// GetStudents returns all student rows as a slice, ordered by id.
func (s *SQLite) GetStudents(ctx context.Context) ([]types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, first_name, last_name, email FROM students ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	// non-nil so the JSON encoding is [] rather than null
	students := make([]types.Student, 0)

	for rows.Next() {
		var student types.Student

		if err := rows.Scan(
			&student.ID,
			&student.FirstName,
			&student.LastName,
			&student.Email,
		); err != nil {
			return nil, fmt.Errorf("GetStudents: scan row: %w", err)
		}

		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}

	return students, nil
}

// DeleteStudentByID removes a student row by primary key.
func (s *SQLite) DeleteStudentByID(ctx context.Context, id int64) error {
	stmt, err := s.Db.PrepareContext(ctx, "DELETE FROM students WHERE id = ?")
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
