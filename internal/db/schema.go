package db

import "database/sql"

// SchemaSQL is the complete modern schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. Tests load it
// through GetSchemaSQL() instead of hardcoding CREATE TABLE statements.
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- Posted items: one row per fully published item
CREATE TABLE IF NOT EXISTS posts (
	item_id TEXT PRIMARY KEY,
	posted_at TEXT NOT NULL,
	platform_post_id TEXT,
	source TEXT
);

CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts(posted_at);
`

// InitSchema creates the database schema
func InitSchema(db *sql.DB) error {
	// Check if schema_version table exists to determine if this is a fresh install
	var tableCount int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}
	if tableCount > 0 {
		return RunMigrations(db)
	}

	// Completely fresh install - create modern schema directly and mark all
	// migrations as applied
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(SchemaSQL); err != nil {
		return err
	}
	if _, err := tx.Exec(schemaVersionSQL); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
