// Package primary defines the primary ports (driving side) for the application.
package primary

import (
	"context"
	"errors"
	"time"

	"github.com/example/autopost/internal/ports/secondary"
)

// CycleService defines the primary port for posting cycles.
type CycleService interface {
	// RunCycle posts at most one pending item.
	// A non-nil error with IsFatal(err) == false is a reported cycle failure;
	// the outcome is still returned when one was produced.
	RunCycle(ctx context.Context) (*CycleOutcome, error)

	// Status lists the source in posting order with each item's posted state.
	Status(ctx context.Context) (*StatusReport, error)

	// MarkPosted records an item as posted without publishing it.
	MarkPosted(ctx context.Context, itemID, platformPostID string) error
}

// Scheduler defines the primary port for running cycles.
type Scheduler interface {
	// RunOnce executes exactly one cycle.
	RunOnce(ctx context.Context) (*CycleOutcome, error)

	// RunForever executes a cycle immediately and then repeatedly until ctx is
	// cancelled (returns nil) or a cycle fails fatally (returns the error).
	RunForever(ctx context.Context) error
}

// CycleStatus is the result kind of one cycle.
type CycleStatus string

const (
	CyclePosted        CycleStatus = "posted"
	CycleNothingToPost CycleStatus = "nothing_to_post"
	CycleAllSkipped    CycleStatus = "all_skipped"
	CycleFailed        CycleStatus = "failed"
	CycleDryRun        CycleStatus = "dry_run"
)

// CycleOutcome describes what one cycle did.
type CycleOutcome struct {
	CycleID  string
	Status   CycleStatus
	ItemID   string
	ItemName string
	Caption  string
	PostID   string
	Skipped  []string // item IDs whose content was unavailable
	Started  time.Time
	Finished time.Time
}

// StatusReport is the source listing joined with the posted state.
type StatusReport struct {
	Source   string
	State    string
	Items    []*ItemStatus
	Next     *ItemStatus
	Posted   int
	Pending  int
	Orphaned int // records whose item is no longer listed
}

// ItemStatus is one listed item with its posted state.
type ItemStatus struct {
	ID             string
	Name           string
	OrderingKey    time.Time
	Posted         bool
	PostedAt       time.Time
	PlatformPostID string
}

var (
	// ErrAllSkipped means every pending item was unavailable this cycle.
	ErrAllSkipped = errors.New("all pending items were unavailable")
	// ErrUnknownItem means an item ID is not in the current source listing.
	ErrUnknownItem = errors.New("item not found in source")
	// ErrNoPublisher means a publishing cycle was requested without platform credentials.
	ErrNoPublisher = errors.New("no publisher configured")
)

// IsFatal reports whether err must stop the process: the posted state is
// unreadable, corrupt, or could not be committed.
func IsFatal(err error) bool {
	return errors.Is(err, secondary.ErrStoreCorrupt) || errors.Is(err, secondary.ErrStoreUnavailable)
}
