package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/example/autopost/internal/config"
	"github.com/example/autopost/internal/core/ledger"
	"github.com/example/autopost/internal/ports/secondary"
	"github.com/example/autopost/internal/wire"
)

// Check statuses
const (
	checkOK   = "✓"
	checkWarn = "⚠"
	checkFail = "✗"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string
	Details string // Only shown if Status != "✓"
	err     error
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate configuration, source access and posted state",
	Long: `Health check for an autopost deployment.

Validates:
- Configuration (required options, credentials)
- Source (lists videos)
- Posted state (loads and parses)
- Schedule (next cycle time)

Examples:
  autopost doctor              # Run full health check
  autopost doctor --quiet      # Exit code only`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")
		out := cmd.OutOrStdout()
		if quiet {
			out = io.Discard
		}

		cfg, err := loadConfig()
		if err != nil {
			printChecks(out, []CheckResult{{Name: "Config", Status: checkFail, Details: "  " + err.Error()}})
			return err
		}

		results := []CheckResult{checkConfig(cfg)}
		if results[0].Status != checkFail {
			if _, err := start(cfg, false); err != nil {
				return err
			}
			defer wire.Close()

			ctx := cmd.Context()
			results = append(results, checkSource(ctx))
			results = append(results, checkState(ctx))
			results = append(results, checkSchedule(cfg, time.Now()))
		}

		printChecks(out, results)

		for _, r := range results {
			if r.Status == checkFail {
				if r.err != nil {
					return r.err
				}
				return errors.New("health check failed")
			}
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolP("quiet", "q", false, "Quiet mode - exit code only")
}

// DoctorCmd returns the doctor command for deployment validation
func DoctorCmd() *cobra.Command {
	return doctorCmd
}

func printChecks(out io.Writer, results []CheckResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Check              Status")
	fmt.Fprintln(out, "─────────────────────────")
	for _, r := range results {
		fmt.Fprintf(out, "%-18s %s\n", r.Name, colorStatus(r.Status))
	}
	fmt.Fprintln(out)

	hasDetails := false
	for _, r := range results {
		if r.Details == "" {
			continue
		}
		if !hasDetails {
			fmt.Fprintln(out, "Details:")
			hasDetails = true
		}
		fmt.Fprintf(out, "\n%s:\n%s\n", r.Name, r.Details)
	}
}

func colorStatus(status string) string {
	switch status {
	case checkOK:
		return color.New(color.FgGreen).Sprint(status)
	case checkWarn:
		return color.New(color.FgYellow).Sprint(status)
	default:
		return color.New(color.FgRed).Sprint(status)
	}
}

// checkConfig validates options; missing X credentials only warn since
// status, mark and dry runs work without them.
func checkConfig(cfg *config.Config) CheckResult {
	if err := cfg.Validate(false); err != nil {
		return CheckResult{Name: "Config", Status: checkFail, Details: "  " + err.Error(), err: err}
	}
	if err := cfg.Validate(true); err != nil {
		return CheckResult{Name: "Config", Status: checkWarn, Details: "  " + err.Error() + "\n  Publishing is disabled until this is set."}
	}
	return CheckResult{Name: "Config", Status: checkOK}
}

func checkSource(ctx context.Context) CheckResult {
	source, err := wire.ItemSource(ctx)
	if err != nil {
		return CheckResult{Name: "Source", Status: checkFail, Details: "  " + err.Error(), err: err}
	}
	items, err := source.ListCandidates(ctx)
	if err != nil {
		return CheckResult{Name: "Source", Status: checkFail, Details: fmt.Sprintf("  %s: %v", source.Describe(), err), err: err}
	}
	if len(items) == 0 {
		return CheckResult{Name: "Source", Status: checkWarn, Details: fmt.Sprintf("  %s: no videos found", source.Describe())}
	}
	return CheckResult{Name: "Source", Status: checkOK, Details: fmt.Sprintf("  %s: %d videos", source.Describe(), len(items))}
}

func checkState(ctx context.Context) CheckResult {
	store, err := wire.StateStore(ctx)
	if err != nil {
		return CheckResult{Name: "State", Status: checkFail, Details: "  " + err.Error(), err: err}
	}
	state, err := store.Load(ctx)
	if errors.Is(err, secondary.ErrStoreCorrupt) {
		return CheckResult{Name: "State", Status: checkFail, err: err, Details: fmt.Sprintf(
			"  %v\n  Fix or remove the file, or set on_corrupt_state: reset to start over.", err)}
	}
	if err != nil {
		return CheckResult{Name: "State", Status: checkFail, Details: "  " + err.Error(), err: err}
	}
	return CheckResult{Name: "State", Status: checkOK, Details: describeState(store.Location(), state)}
}

func describeState(location string, state ledger.State) string {
	details := fmt.Sprintf("  %s: %d posted", location, state.Len())
	var last ledger.PostRecord
	for _, r := range state.Records() {
		if r.PostedAt.After(last.PostedAt) {
			last = r
		}
	}
	if last.ItemID != "" {
		details += fmt.Sprintf(", last %s at %s", last.ItemID, last.PostedAt.Local().Format(time.RFC3339))
	}
	return details
}

func checkSchedule(cfg *config.Config, now time.Time) CheckResult {
	if cfg.Schedule == "" {
		return CheckResult{Name: "Schedule", Status: checkOK, Details: fmt.Sprintf("  every %s", cfg.Interval())}
	}
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return CheckResult{Name: "Schedule", Status: checkFail, Details: "  " + err.Error(), err: err}
	}
	return CheckResult{Name: "Schedule", Status: checkOK, Details: fmt.Sprintf("  %q, next at %s",
		cfg.Schedule, schedule.Next(now).Format(time.RFC3339))}
}
