// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/example/autopost/internal/core/ledger"
	"github.com/example/autopost/internal/db"
	"github.com/example/autopost/internal/ports/secondary"
)

// StateRepository implements secondary.StateStore with SQLite.
type StateRepository struct {
	db       *sql.DB
	location string
}

// NewStateRepository creates a state repository over an open database.
func NewStateRepository(database *sql.DB, location string) *StateRepository {
	return &StateRepository{db: database, location: location}
}

// OpenStateStore opens the database file at path and returns a repository
// over it. The caller owns Close.
func OpenStateStore(path string) (*StateRepository, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, classify(context.Background(), path, "open", err)
	}
	return NewStateRepository(database, path), nil
}

// Location returns the database path.
func (r *StateRepository) Location() string {
	return r.location
}

// Close closes the underlying database.
func (r *StateRepository) Close() error {
	return r.db.Close()
}

// Load reads every post record.
func (r *StateRepository) Load(ctx context.Context) (ledger.State, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT item_id, posted_at, platform_post_id, source FROM posts ORDER BY item_id")
	if err != nil {
		return ledger.State{}, classify(ctx, r.location, "load", err)
	}
	defer rows.Close()

	var records []ledger.PostRecord
	for rows.Next() {
		var (
			itemID, postedAt       string
			platformPostID, source sql.NullString
		)
		if err := rows.Scan(&itemID, &postedAt, &platformPostID, &source); err != nil {
			return ledger.State{}, classify(ctx, r.location, "load", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, postedAt)
		if err != nil {
			return ledger.State{}, fmt.Errorf("%w: %s: record %q has invalid posted_at %q",
				secondary.ErrStoreCorrupt, r.location, itemID, postedAt)
		}
		records = append(records, ledger.PostRecord{
			ItemID:         itemID,
			PostedAt:       ts.UTC(),
			PlatformPostID: platformPostID.String,
			Source:         source.String,
		})
	}
	if err := rows.Err(); err != nil {
		return ledger.State{}, classify(ctx, r.location, "load", err)
	}

	return ledger.FromRecords(records...), nil
}

// Save replaces the stored state in a single transaction. Readers see either
// the previous state or the new one.
func (r *StateRepository) Save(ctx context.Context, state ledger.State) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(ctx, r.location, "save", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM posts"); err != nil {
		return classify(ctx, r.location, "save", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO posts (item_id, posted_at, platform_post_id, source) VALUES (?, ?, ?, ?)")
	if err != nil {
		return classify(ctx, r.location, "save", err)
	}
	defer stmt.Close()

	for _, rec := range state.Records() {
		var platformPostID, source sql.NullString
		if rec.PlatformPostID != "" {
			platformPostID = sql.NullString{String: rec.PlatformPostID, Valid: true}
		}
		if rec.Source != "" {
			source = sql.NullString{String: rec.Source, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			rec.ItemID,
			rec.PostedAt.UTC().Format(time.RFC3339Nano),
			platformPostID,
			source,
		)
		if err != nil {
			return classify(ctx, r.location, "save", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(ctx, r.location, "save", err)
	}
	return nil
}

// classify maps driver errors onto the store error kinds. Errors caused by
// ctx ending keep the context error in the chain and are not store failures.
func classify(ctx context.Context, location, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	if secondary.IsCancellation(err) {
		return fmt.Errorf("%s: failed to %s state: %w", location, op, err)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
			return fmt.Errorf("%w: %s: failed to %s state: %v", secondary.ErrStoreCorrupt, location, op, err)
		}
	}
	return fmt.Errorf("%w: %s: failed to %s state: %v", secondary.ErrStoreUnavailable, location, op, err)
}

// Ensure StateRepository implements the interface
var _ secondary.StateStore = (*StateRepository)(nil)
