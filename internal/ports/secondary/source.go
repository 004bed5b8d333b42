// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"

	"github.com/example/autopost/internal/core/item"
)

// ItemSource defines the secondary port for enumerating and fetching media items.
// Implementations are read-only against their backing store.
type ItemSource interface {
	// ListCandidates returns every eligible item sorted with item.Sort.
	ListCandidates(ctx context.Context) ([]item.Item, error)

	// FetchContent stages the item's bytes for upload.
	// Returns an error wrapping ErrContentUnavailable if the item is gone.
	FetchContent(ctx context.Context, it item.Item) (*Media, error)

	// Describe returns a short human-readable description of the source.
	Describe() string
}

// Media is item content staged on the local filesystem.
type Media struct {
	ItemID   string
	Name     string
	MIMEType string
	Path     string
	Size     int64

	// Release frees staged bytes, if the source made a copy.
	Release func() error
}

// Close releases staged bytes. Safe to call on a nil Media.
func (m *Media) Close() error {
	if m == nil || m.Release == nil {
		return nil
	}
	release := m.Release
	m.Release = nil
	return release()
}
