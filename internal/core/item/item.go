// Package item contains the pure model of a postable media item.
// Nothing here performs I/O; sources produce items and the orchestrator consumes them.
package item

import (
	"sort"
	"strings"
	"time"
)

// Item is one candidate media unit discovered in a source.
type Item struct {
	ID          string    // stable key into the posted ledger (file name or Drive file id)
	Name        string    // display name, used for captions
	OrderingKey time.Time // creation or modification time
	ContentRef  string    // local path or remote download token; never persisted
	MIMEType    string
}

// Less reports whether a sorts before b: oldest first, ties broken by ID.
func Less(a, b Item) bool {
	if !a.OrderingKey.Equal(b.OrderingKey) {
		return a.OrderingKey.Before(b.OrderingKey)
	}
	return a.ID < b.ID
}

// Sort orders items in place, oldest first, ties broken by ID.
func Sort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(items[i], items[j])
	})
}

// IsVideo reports whether the MIME type names a video.
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "video/")
}
