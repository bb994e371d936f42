package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn := cfg.DSN

	if dsn == "" {
		path := strings.TrimSpace(cfg.Path)
		switch {
		case path == "", strings.EqualFold(path, ":memory:"):
			dsn = "file::memory:?cache=shared&_foreign_keys=1"
		default:
			if err := ensureDir(path); err != nil {
				return nil, err
			}
			dsn = fileDSN(path)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// A single connection serialises transactions and keeps shared-cache
	// in-memory databases from returning SQLITE_LOCKED under concurrency.
	if isMemoryDSN(dsn) {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := enableForeignKeys(sqlDB); err != nil {
		return nil, err
	}

	return db, nil
}

// fileDSN opens transactions with BEGIN IMMEDIATE so concurrent writers queue
// on the busy timeout instead of failing to upgrade a read lock.
func fileDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", filepath.ToSlash(path))
}

func isMemoryDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.Contains(lower, ":memory:") || strings.Contains(lower, "mode=memory")
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func enableForeignKeys(sqlDB *sql.DB) error {
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil && err != sql.ErrConnDone {
		return err
	}
	return nil
}
