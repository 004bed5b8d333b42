package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestOpen_FreshInstall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "autopost.db")

	database, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer database.Close()

	var version int
	if err := database.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("schema version = %d, want %d", version, len(migrations))
	}

	if _, err := database.Exec("INSERT INTO posts (item_id, posted_at, source) VALUES ('a', '2024-01-01T00:00:00Z', 'manual')"); err != nil {
		t.Errorf("posts table missing columns: %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autopost.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	second.Close()
}

func TestRunMigrations_UpgradesVersionOne(t *testing.T) {
	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer database.Close()
	database.SetMaxOpenConns(1)

	// Database as written before the source column existed
	if _, err := database.Exec(schemaVersionSQL); err != nil {
		t.Fatalf("failed to create schema_version: %v", err)
	}
	tx, _ := database.Begin()
	if err := migrationV1(tx); err != nil {
		t.Fatalf("migrationV1 failed: %v", err)
	}
	tx.Exec("INSERT INTO schema_version (version) VALUES (1)")
	tx.Exec("INSERT INTO posts (item_id, posted_at) VALUES ('old.mp4', '2023-12-31T00:00:00Z')")
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if err := InitSchema(database); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	var source sql.NullString
	if err := database.QueryRow("SELECT source FROM posts WHERE item_id = 'old.mp4'").Scan(&source); err != nil {
		t.Fatalf("source column missing after migration: %v", err)
	}
	if source.Valid {
		t.Errorf("source = %q, want NULL for migrated row", source.String)
	}
}
