package db

import (
	"database/sql"
	"fmt"
)

const schemaVersionSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// Migration is one schema upgrade step.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *sql.Tx) error
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_posts",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_source_to_posts",
		Up:      migrationV2,
	},
}

// RunMigrations executes all pending migrations
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// Get current schema version
	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates the posts table
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			item_id TEXT PRIMARY KEY,
			posted_at TEXT NOT NULL,
			platform_post_id TEXT
		)
	`)
	return err
}

// migrationV2 records where a post record came from (manual, legacy)
func migrationV2(tx *sql.Tx) error {
	var hasSource int
	err := tx.QueryRow("SELECT COUNT(*) FROM pragma_table_info('posts') WHERE name = 'source'").Scan(&hasSource)
	if err != nil {
		return err
	}
	if hasSource == 0 {
		if _, err := tx.Exec("ALTER TABLE posts ADD COLUMN source TEXT"); err != nil {
			return err
		}
	}
	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts(posted_at)")
	return err
}
