// Package migrations embeds the schema for every supported backend and
// applies it with golang-migrate at startup.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/*.sql postgres/*.sql
var migrationsFS embed.FS

// Dialect names match the directories under migrations/.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Up applies every pending migration for dialect to db.
// It is a no-op when the schema is already current. The *sql.DB is left
// open; the caller still owns it.
func Up(db *sql.DB, dialect string) error {
	driver, err := databaseDriver(db, dialect)
	if err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, dialect)
	if err != nil {
		return fmt.Errorf("migrations.Up: create source: %w", err)
	}
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return fmt.Errorf("migrations.Up: create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations.Up: apply: %w", err)
	}

	return nil
}

func databaseDriver(db *sql.DB, dialect string) (database.Driver, error) {
	var (
		driver database.Driver
		err    error
	)

	switch dialect {
	case DialectSQLite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case DialectPostgres:
		driver, err = pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	default:
		return nil, fmt.Errorf("migrations.Up: unsupported dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("migrations.Up: %s driver: %w", dialect, err)
	}

	return driver, nil
}
