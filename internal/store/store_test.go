package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore opens a fresh database in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "molder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "molder.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
}

func TestOpenTwiceKeepsTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "molder.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"compiled_schemas", "validation_runs"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestOpenUnwritableDirectory(t *testing.T) {
	_, err := Open("/nonexistent/dir/molder.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open store")
}

func TestCloseWithoutDatabase(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestConnectionSettings(t *testing.T) {
	s := createTestStore(t)

	want := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
	}
	for name, value := range want {
		var got string
		require.NoError(t, s.db.QueryRow("PRAGMA "+name).Scan(&got))
		assert.Equal(t, value, got, name)
	}
}

func TestTableLayout(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t,
		[]string{"model", "fingerprint", "document", "document_hash", "seq"},
		columns(t, s.db, "compiled_schemas"))
	assert.Equal(t,
		[]string{"id", "seq", "model", "fingerprint", "input_hash", "valid", "violations", "errors", "source", "recorded_at"},
		columns(t, s.db, "validation_runs"))
}

func TestMigrateUnversionedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "molder.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, schemaVersion, version)

	var index string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND tbl_name='validation_runs' AND name='idx_validation_runs_model'",
	).Scan(&index)
	assert.NoError(t, err)
}

func columns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
