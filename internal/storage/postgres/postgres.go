// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Storage interface. Connections go through pgx's database/sql
// driver and queries are built with squirrel using $n placeholders.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/angelcruzl/students-api/internal/config"
	"github.com/angelcruzl/students-api/internal/storage"
	"github.com/angelcruzl/students-api/internal/storage/migrations"
	"github.com/angelcruzl/students-api/internal/types"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	// registers the "pgx" driver with database/sql
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	studentsTable = "students"
	pingTimeout   = 5 * time.Second
)

var studentColumns = []string{"id", "first_name", "last_name", "email"}

// Postgres is the concrete implementation of storage.Storage.
type Postgres struct {
	db   *sql.DB
	psql sq.StatementBuilderType
}

var _ storage.Storage = (*Postgres)(nil)

// New connects to cfg.Storage.DSN, verifies the connection with a ping,
// applies the embedded migrations and returns a ready-to-use *Postgres.
func New(ctx context.Context, cfg *config.Config) (*Postgres, error) {
	db, err := sql.Open("pgx", cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: open db: %w", err)
	}

	if cfg.Storage.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Storage.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Storage.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	if err := migrations.Up(db, migrations.DialectPostgres); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already opened and migrated pool.
func NewWithDB(db *sql.DB) *Postgres {
	return &Postgres{
		db:   db,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Save inserts a new row when student.ID is zero and updates the row with
// that primary key otherwise.
func (p *Postgres) Save(ctx context.Context, student types.Student) (types.Student, error) {
	if student.ID == 0 {
		return p.insert(ctx, student)
	}
	return p.update(ctx, student)
}

func (p *Postgres) insert(ctx context.Context, student types.Student) (types.Student, error) {
	query, args, err := p.psql.
		Insert(studentsTable).
		Columns("first_name", "last_name", "email").
		Values(student.FirstName, student.LastName, student.Email).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return types.Student{}, fmt.Errorf("Save: build insert: %w", err)
	}

	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&student.ID); err != nil {
		if postgresError(err) == pgerrcode.UniqueViolation {
			return types.Student{}, storage.ErrEmailTaken
		}
		return types.Student{}, fmt.Errorf("Save: insert: %w", err)
	}

	return student, nil
}

func (p *Postgres) update(ctx context.Context, student types.Student) (types.Student, error) {
	query, args, err := p.psql.
		Update(studentsTable).
		Set("first_name", student.FirstName).
		Set("last_name", student.LastName).
		Set("email", student.Email).
		Where(sq.Eq{"id": student.ID}).
		ToSql()
	if err != nil {
		return types.Student{}, fmt.Errorf("Save: build update: %w", err)
	}

	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		if postgresError(err) == pgerrcode.UniqueViolation {
			return types.Student{}, storage.ErrEmailTaken
		}
		return types.Student{}, fmt.Errorf("Save: update: %w", err)
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

// GetStudentByID fetches a single student by primary key.
func (p *Postgres) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	return p.getOne(ctx, "GetStudentByID", sq.Eq{"id": id})
}

// GetStudentByEmail fetches a single student by email.
func (p *Postgres) GetStudentByEmail(ctx context.Context, email string) (types.Student, error) {
	return p.getOne(ctx, "GetStudentByEmail", sq.Eq{"email": email})
}

func (p *Postgres) getOne(ctx context.Context, op string, where sq.Eq) (types.Student, error) {
	query, args, err := p.psql.
		Select(studentColumns...).
		From(studentsTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return types.Student{}, fmt.Errorf("%s: build query: %w", op, err)
	}

	var student types.Student
	err = p.db.QueryRowContext(ctx, query, args...).Scan(
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

// GetStudents returns every student ordered by id.
func (p *Postgres) GetStudents(ctx context.Context) ([]types.Student, error) {
	query, args, err := p.psql.
		Select(studentColumns...).
		From(studentsTable).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("GetStudents: build query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		var student types.Student
		if err := rows.Scan(&student.ID, &student.FirstName, &student.LastName, &student.Email); err != nil {
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
func (p *Postgres) DeleteStudentByID(ctx context.Context, id int64) error {
	query, args, err := p.psql.
		Delete(studentsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: build query: %w", err)
	}

	result, err := p.db.ExecContext(ctx, query, args...)
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
func (p *Postgres) Close() error {
	return p.db.Close()
}

// postgresError returns the SQLSTATE code of err, or "" when err did not
// come from the server.
func postgresError(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
