package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/example/autopost/internal/core/item"
)

func TestMarkPosted(t *testing.T) {
	postedAt := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start State
		id    string
	}{
		{name: "empty state", start: New(), id: "clip-1.mp4"},
		{name: "existing other record", start: FromRecords(PostRecord{ItemID: "clip-0.mp4"}), id: "clip-1.mp4"},
		{name: "overwrite same id", start: FromRecords(PostRecord{ItemID: "clip-1.mp4"}), id: "clip-1.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := MarkPosted(tt.start, tt.id, PostRecord{PostedAt: postedAt, PlatformPostID: "999"})
			if !IsPosted(next, tt.id) {
				t.Fatalf("IsPosted(%q) = false after MarkPosted", tt.id)
			}
			rec, _ := next.Record(tt.id)
			if rec.ItemID != tt.id {
				t.Errorf("ItemID = %q, want %q", rec.ItemID, tt.id)
			}
			if rec.PlatformPostID != "999" {
				t.Errorf("PlatformPostID = %q, want 999", rec.PlatformPostID)
			}
		})
	}
}

func TestMarkPosted_DoesNotMutateInput(t *testing.T) {
	start := FromRecords(PostRecord{ItemID: "a"})

	_ = MarkPosted(start, "b", PostRecord{})

	if IsPosted(start, "b") {
		t.Error("MarkPosted mutated its input state")
	}
	if start.Len() != 1 {
		t.Errorf("input Len = %d, want 1", start.Len())
	}
}

func TestIsPosted_ZeroState(t *testing.T) {
	var s State
	if IsPosted(s, "anything") {
		t.Error("zero State reports an item as posted")
	}
	if s.Len() != 0 {
		t.Errorf("zero State Len = %d, want 0", s.Len())
	}
}

func TestPending(t *testing.T) {
	items := []item.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	state := FromRecords(PostRecord{ItemID: "a"}, PostRecord{ItemID: "c"}, PostRecord{ItemID: "gone"})

	pending := Pending(items, state)

	if len(pending) != 2 || pending[0].ID != "b" || pending[1].ID != "d" {
		t.Errorf("Pending = %v, want [b d]", pending)
	}
}

func TestRecords_SortedByID(t *testing.T) {
	state := FromRecords(PostRecord{ItemID: "z"}, PostRecord{ItemID: "m"}, PostRecord{ItemID: "a"})

	records := state.Records()

	var ids []string
	for _, r := range records {
		ids = append(ids, r.ItemID)
	}
	if fmt.Sprint(ids) != "[a m z]" {
		t.Errorf("Records order = %v, want [a m z]", ids)
	}
}

func TestEqual(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	sameInstant := at.In(time.FixedZone("UTC+2", 2*60*60))

	a := FromRecords(PostRecord{ItemID: "x", PostedAt: at, PlatformPostID: "1"})
	b := FromRecords(PostRecord{ItemID: "x", PostedAt: sameInstant, PlatformPostID: "1"})
	c := FromRecords(PostRecord{ItemID: "x", PostedAt: at, PlatformPostID: "2"})

	if !a.Equal(b) {
		t.Error("states with the same instant in different zones should be equal")
	}
	if a.Equal(c) {
		t.Error("states with different post ids should not be equal")
	}
	if !New().Equal(State{}) {
		t.Error("empty states should be equal")
	}
}
