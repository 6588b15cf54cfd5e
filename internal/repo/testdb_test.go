package repo

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "papergen_test.db"))
	require.NoError(t, err)
	require.NoError(t, ApplyMigrations(db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}
