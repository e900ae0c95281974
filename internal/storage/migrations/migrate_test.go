package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestUp_SQLiteCreatesStudentsTable(t *testing.T) {
	db := openSQLite(t)

	require.NoError(t, Up(db, DialectSQLite))

	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'students'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "students", name)
}

func TestUp_IsIdempotent(t *testing.T) {
	db := openSQLite(t)

	require.NoError(t, Up(db, DialectSQLite))
	require.NoError(t, Up(db, DialectSQLite))

	// the connection must still be usable after migrating
	require.NoError(t, db.Ping())
}

func TestUp_EmailIsUnique(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, Up(db, DialectSQLite))

	insert := `INSERT INTO students (first_name, last_name, email) VALUES (?, ?, ?)`
	_, err := db.Exec(insert, "Angel", "Cruz", "me@angelcruzl.dev")
	require.NoError(t, err)

	_, err = db.Exec(insert, "Luis", "Lara", "me@angelcruzl.dev")
	assert.Error(t, err)
}

func TestUp_UnknownDialect(t *testing.T) {
	db := openSQLite(t)

	err := Up(db, "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect")
}

func TestEmbeddedFiles(t *testing.T) {
	for _, dialect := range []string{DialectSQLite, DialectPostgres} {
		entries, err := migrationsFS.ReadDir(dialect)
		require.NoError(t, err)
		assert.NotEmpty(t, entries, dialect)
	}
}
