package secondary

import (
	"context"
	"errors"
)

var (
	// ErrContentUnavailable means a listed item can no longer be fetched
	// (deleted or moved since listing). Callers skip the item.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrStoreCorrupt means the persisted state exists but cannot be parsed.
	ErrStoreCorrupt = errors.New("state store corrupt")

	// ErrStoreUnavailable means the persisted state could not be read or written.
	ErrStoreUnavailable = errors.New("state store unavailable")
)

// IsCancellation reports whether err stems from a cancelled or expired
// context rather than from the store or source itself.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
