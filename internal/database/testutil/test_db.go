package testutil

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/database"
)

// TestDBOption customises the behaviour of MustOpenTestDB.
type TestDBOption func(*testDBConfig)

type testDBConfig struct {
	autoMigrate bool
	onDisk      bool
}

// WithAutoMigrate enables automatic schema migration after opening the test database.
func WithAutoMigrate() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
	}
}

// WithFileStore backs the test database with a file in t.TempDir() using the
// same settings the server applies to a configured SQLite path. The pool keeps
// several connections, so concurrent transactions really contend.
func WithFileStore() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.onDisk = true
	}
}

// MustOpenTestDB opens a private in-memory SQLite database for tests, applying optional migrations.
// Each call gets its own named database; the connection is closed via t.Cleanup.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	cfg := testDBConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	dbCfg := database.Config{
		Driver: "sqlite",
		DSN:    "file:test-" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1",
	}
	if cfg.onDisk {
		dbCfg = database.Config{
			Driver:       "sqlite",
			Path:         filepath.Join(t.TempDir(), "board.sqlite"),
			MaxOpenConns: 8,
		}
	}

	db, err := database.Open(dbCfg)
	require.NoError(t, err)

	if cfg.autoMigrate {
		require.NoError(t, database.Migrate(db))
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
