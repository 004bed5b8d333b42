// Package cli contains thin adapters that translate CLI operations into
// CycleService calls and render the results.
package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/example/autopost/internal/ports/primary"
)

// CycleAdapter renders CycleService results for humans.
// It depends only on the CycleService interface, enabling easy testing with mocks.
type CycleAdapter struct {
	service primary.CycleService
	out     io.Writer
}

// NewCycleAdapter creates a new CycleAdapter with the given service.
func NewCycleAdapter(service primary.CycleService, out io.Writer) *CycleAdapter {
	return &CycleAdapter{
		service: service,
		out:     out,
	}
}

// Status prints every listed item in posting order with its posted state.
func (a *CycleAdapter) Status(ctx context.Context) (*primary.StatusReport, error) {
	report, err := a.service.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	fmt.Fprintf(a.out, "Source: %s\n", report.Source)
	fmt.Fprintf(a.out, "State:  %s\n\n", report.State)

	if len(report.Items) == 0 {
		fmt.Fprintln(a.out, "No videos found in source.")
		return report, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tID\tNAME\tADDED\tSTATUS")
	fmt.Fprintln(w, "-\t--\t----\t-----\t------")
	for i, it := range report.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			i+1,
			it.ID,
			it.Name,
			it.OrderingKey.Local().Format("2006-01-02 15:04"),
			a.itemStatus(report, it),
		)
	}
	w.Flush()

	fmt.Fprintf(a.out, "\n%d posted, %d pending", report.Posted, report.Pending)
	if report.Orphaned > 0 {
		fmt.Fprintf(a.out, ", %d recorded but no longer in source", report.Orphaned)
	}
	fmt.Fprintln(a.out)
	return report, nil
}

func (a *CycleAdapter) itemStatus(report *primary.StatusReport, it *primary.ItemStatus) string {
	switch {
	case it.Posted && it.PlatformPostID != "":
		return color.New(color.FgGreen).Sprintf("posted %s (%s)", it.PostedAt.Local().Format("2006-01-02"), it.PlatformPostID)
	case it.Posted:
		return color.New(color.FgGreen).Sprintf("posted %s", it.PostedAt.Local().Format("2006-01-02"))
	case report.Next == it:
		return "pending" + color.New(color.FgHiMagenta).Sprint(" ← next")
	default:
		return color.New(color.FgYellow).Sprint("pending")
	}
}

// Mark records an item as posted and confirms it.
func (a *CycleAdapter) Mark(ctx context.Context, itemID, platformPostID string) error {
	if err := a.service.MarkPosted(ctx, itemID, platformPostID); err != nil {
		return fmt.Errorf("failed to mark %s: %w", itemID, err)
	}
	fmt.Fprintf(a.out, "%s Marked %s as posted\n", color.New(color.FgGreen).Sprint("✓"), itemID)
	return nil
}

// PrintOutcome prints a one-line summary of a cycle.
func (a *CycleAdapter) PrintOutcome(outcome *primary.CycleOutcome) {
	if outcome == nil {
		return
	}
	ok := color.New(color.FgGreen).Sprint("✓")
	warn := color.New(color.FgYellow).Sprint("!")
	fail := color.New(color.FgRed).Sprint("✗")

	switch outcome.Status {
	case primary.CyclePosted:
		fmt.Fprintf(a.out, "%s Posted %s (post %s) in %s\n", ok, outcome.ItemName, outcome.PostID,
			outcome.Finished.Sub(outcome.Started).Round(time.Millisecond))
	case primary.CycleNothingToPost:
		fmt.Fprintf(a.out, "%s Nothing to post\n", ok)
	case primary.CycleDryRun:
		fmt.Fprintf(a.out, "%s Dry run: would post %s with caption %q\n", ok, outcome.ItemName, outcome.Caption)
	case primary.CycleAllSkipped:
		fmt.Fprintf(a.out, "%s All %d pending items were unavailable\n", warn, len(outcome.Skipped))
	default:
		fmt.Fprintf(a.out, "%s Cycle %s failed\n", fail, outcome.CycleID)
	}
	if len(outcome.Skipped) > 0 && outcome.Status != primary.CycleAllSkipped {
		fmt.Fprintf(a.out, "%s Skipped %d unavailable item(s): %v\n", warn, len(outcome.Skipped), outcome.Skipped)
	}
}
