// Package ledger contains the pure model of posting progress.
//
// A State maps item IDs to PostRecords. States are values: every transformation
// returns a new State and leaves its input untouched, so a cycle can compute the
// committed state without mutating what it loaded.
package ledger

import (
	"sort"
	"time"

	"github.com/example/autopost/internal/core/item"
)

// Record sources other than a normal cycle.
const (
	SourceManual = "manual" // recorded by an operator
	SourceLegacy = "legacy" // migrated from a posted_ids list
)

// PostRecord is durable proof that an item was fully published.
type PostRecord struct {
	ItemID         string
	PostedAt       time.Time
	PlatformPostID string
	Source         string
}

// State is the full posted mapping.
type State struct {
	records map[string]PostRecord
}

// New returns an empty State.
func New() State {
	return State{}
}

// FromRecords builds a State from records. Later records win on duplicate IDs.
func FromRecords(records ...PostRecord) State {
	m := make(map[string]PostRecord, len(records))
	for _, r := range records {
		m[r.ItemID] = r
	}
	return State{records: m}
}

// IsPosted reports whether itemID has a PostRecord in s.
func IsPosted(s State, itemID string) bool {
	_, ok := s.records[itemID]
	return ok
}

// MarkPosted returns a copy of s with rec recorded under itemID.
// rec.ItemID is overwritten with itemID.
func MarkPosted(s State, itemID string, rec PostRecord) State {
	m := make(map[string]PostRecord, len(s.records)+1)
	for k, v := range s.records {
		m[k] = v
	}
	rec.ItemID = itemID
	m[itemID] = rec
	return State{records: m}
}

// Pending returns the items of a sorted listing that have no PostRecord, in order.
func Pending(items []item.Item, s State) []item.Item {
	var pending []item.Item
	for _, it := range items {
		if !IsPosted(s, it.ID) {
			pending = append(pending, it)
		}
	}
	return pending
}

// Record returns the PostRecord for itemID.
func (s State) Record(itemID string) (PostRecord, bool) {
	r, ok := s.records[itemID]
	return r, ok
}

// Len returns the number of posted items.
func (s State) Len() int {
	return len(s.records)
}

// Records returns all records sorted by ItemID.
func (s State) Records() []PostRecord {
	out := make([]PostRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ItemID < out[j].ItemID
	})
	return out
}

// Equal reports whether two states hold the same records.
// Timestamps are compared as instants.
func (s State) Equal(other State) bool {
	if len(s.records) != len(other.records) {
		return false
	}
	for id, a := range s.records {
		b, ok := other.records[id]
		if !ok {
			return false
		}
		if a.ItemID != b.ItemID || a.PlatformPostID != b.PlatformPostID || a.Source != b.Source {
			return false
		}
		if !a.PostedAt.Equal(b.PostedAt) {
			return false
		}
	}
	return true
}
