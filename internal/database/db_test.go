package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.False(t, SupportsRowLocking(db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	for _, model := range []any{&models.User{}, &models.Team{}, &models.Membership{}, &models.Sprint{}, &models.Task{}} {
		require.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}

	// Running twice must be harmless.
	require.NoError(t, Migrate(db))
}

func TestActiveKeyUniqueIndexAllowsManyInactive(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	user := models.User{Username: "owner", Email: "owner@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	key := "user:" + user.ID
	for _, name := range []string{"S1", "S2"} {
		require.NoError(t, db.Create(&models.Sprint{Name: name, WorkspaceKey: key, CreatedByID: user.ID}).Error)
	}

	first := models.Sprint{Name: "S3", WorkspaceKey: key, CreatedByID: user.ID, IsActive: true, ActiveKey: &key}
	require.NoError(t, db.Create(&first).Error)

	second := models.Sprint{Name: "S4", WorkspaceKey: key, CreatedByID: user.ID, IsActive: true, ActiveKey: &key}
	require.Error(t, db.Create(&second).Error)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=1"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestOpenSQLiteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "board.sqlite")

	db, err := Open(Config{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	require.FileExists(t, path)
}
