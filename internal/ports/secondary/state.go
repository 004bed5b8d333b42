package secondary

import (
	"context"

	"github.com/example/autopost/internal/core/ledger"
)

// StateStore defines the secondary port for posted-state persistence.
// The store is read and written as a single unit.
type StateStore interface {
	// Load returns the persisted state. A missing store yields an empty state.
	// Returns an error wrapping ErrStoreCorrupt if the store cannot be parsed,
	// or ErrStoreUnavailable if it cannot be read.
	Load(ctx context.Context) (ledger.State, error)

	// Save atomically replaces the persisted state. Readers see either the
	// previous or the new content, never a mix.
	Save(ctx context.Context, state ledger.State) error

	// Location describes where the state lives (path or DSN).
	Location() string
}
