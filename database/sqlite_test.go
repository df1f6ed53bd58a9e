package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umakantv/go-utils/logger"
)

// migrationsDir is the schema shipped with the service, relative to this package
const migrationsDir = "migrations"

func TestMain(m *testing.M) {
	logger.Init(logger.LoggerConfig{
		CallerKey:  "file",
		TimeKey:    "timestamp",
		CallerSkip: 1,
	})
	os.Exit(m.Run())
}

func newTestSQLiteStore(t *testing.T) Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "blog.db") + "?_busy_timeout=5000"
	db, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err)
	require.NoError(t, MigrateSQLite(db, migrationsDir))

	store := NewSQLiteStore(db)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, newTestSQLiteStore)
}

func TestMigrateSQLiteAppliesOnce(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "blog.db")
	db, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, MigrateSQLite(db, migrationsDir))
	require.NoError(t, MigrateSQLite(db, migrationsDir))

	var applied int
	require.NoError(t, db.Get(&applied, "SELECT COUNT(*) FROM schema_migrations"))
	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err)
	assert.Equal(t, len(entries), applied)

	var tables []string
	require.NoError(t, db.Select(&tables, "SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'posts') ORDER BY name"))
	assert.Equal(t, []string{"posts", "users"}, tables)
}

func TestMigrateSQLiteMissingDir(t *testing.T) {
	db, err := sqlx.Connect("sqlite3", filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, MigrateSQLite(db, filepath.Join(t.TempDir(), "nowhere")))
}

func TestTagListScan(t *testing.T) {
	var tags tagList
	require.NoError(t, tags.Scan(`["go","sql"]`))
	assert.Equal(t, tagList{"go", "sql"}, tags)

	require.NoError(t, tags.Scan([]byte(`[]`)))
	assert.Empty(t, tags)

	require.NoError(t, tags.Scan(nil))
	assert.NotNil(t, tags)

	assert.Error(t, tags.Scan(42))

	v, err := tagList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}
