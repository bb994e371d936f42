package database

import (
	"strings"
	"testing"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User: "board",
		Name: "sprintboard",
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	expected := "host=localhost port=5432 user=board dbname=sprintboard TimeZone=UTC sslmode=disable"
	if dsn != expected {
		t.Fatalf("expected %q, got %q", expected, dsn)
	}
}

func TestBuildPostgresDSNWithOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "pass",
		Options: map[string]string{
			"sslmode":     "require",
			"search_path": "board",
		},
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	if !containsAll(
		dsn,
		"host=db.example.com",
		"port=6543",
		"password=pass",
		"sslmode=require",
		"search_path=board",
	) {
		t.Fatalf("dsn missing expected components: %q", dsn)
	}
	if strings.Contains(dsn, "sslmode=disable") {
		t.Fatalf("expected sslmode override, got %q", dsn)
	}
}

func TestBuildDSNRequiresUserAndName(t *testing.T) {
	if _, err := buildPostgresDSN(Config{}); err == nil {
		t.Fatalf("expected postgres error for missing credentials")
	}
	if _, err := buildMySQLDSN(Config{Host: "localhost"}); err == nil {
		t.Fatalf("expected mysql error for missing credentials")
	}
}

func TestBuildDSNPrefersExplicitDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{DSN: "custom"})
	if err != nil || dsn != "custom" {
		t.Fatalf("expected explicit dsn to win, got %q (%v)", dsn, err)
	}
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "board",
		Password: "secret",
		Name:     "sprintboard",
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	expected := "board:secret@tcp(127.0.0.1:3306)/sprintboard?charset=utf8mb4&loc=UTC&parseTime=True"
	if dsn != expected {
		t.Fatalf("expected %q, got %q", expected, dsn)
	}
}

func containsAll(value string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(value, part) {
			return false
		}
	}
	return true
}

func TestSQLiteFileDSNSerialisesWriters(t *testing.T) {
	dsn := fileDSN("data/board.sqlite")

	if !containsAll(dsn, "file:data/board.sqlite?", "_journal_mode=WAL", "_busy_timeout=5000", "_txlock=immediate") {
		t.Fatalf("unexpected sqlite dsn: %q", dsn)
	}
}
