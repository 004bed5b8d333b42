package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/example/autopost/internal/config"
	"github.com/example/autopost/internal/wire"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Post the oldest unposted video, once or on a schedule",
	Long: `Run posting cycles. Each cycle loads the posted state, lists the source,
publishes the oldest unposted video and records it.

Without --once, a cycle runs immediately and then every --interval seconds
(or at each --schedule activation) until interrupted.

Examples:
  autopost run --once
  autopost run --interval 3600
  autopost run --schedule "0 9 * * *"
  autopost run --once --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyRunFlags(cmd, cfg)

		logger, err := start(cfg, !cfg.DryRun)
		if err != nil {
			return err
		}
		defer wire.Close()

		ctx := cmd.Context()
		scheduler, err := wire.Scheduler(ctx)
		if err != nil {
			return err
		}

		once, _ := cmd.Flags().GetBool("once")
		if once {
			adapter, err := wire.CycleAdapterWithOutput(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			outcome, err := scheduler.RunOnce(ctx)
			adapter.PrintOutcome(outcome)
			return err
		}

		logger.WithFields(logrus.Fields{
			"source":   cfg.Source.Kind + ":" + cfg.Source.Location,
			"state":    cfg.StatePath(),
			"interval": cfg.Interval().String(),
			"schedule": cfg.Schedule,
			"dry_run":  cfg.DryRun,
		}).Info("autopost started")
		return scheduler.RunForever(ctx)
	},
}

func init() {
	runCmd.Flags().Bool("once", false, "run a single cycle and exit")
	runCmd.Flags().Int("interval", config.DefaultIntervalSeconds, "seconds to wait after a cycle before the next")
	runCmd.Flags().String("schedule", "", "cron expression for cycle times (overrides --interval)")
	runCmd.Flags().String("state-file", config.DefaultStateFile, "posted-state file")
	runCmd.Flags().String("caption", config.DefaultCaption, "caption template ({filename}, {stem}, {ext}, {file_id})")
	runCmd.Flags().Bool("dry-run", false, "select and render the next post without publishing")
}

// applyRunFlags overrides cfg with flags given explicitly on the command line.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.IntervalSeconds, _ = flags.GetInt("interval")
	}
	if flags.Changed("schedule") {
		cfg.Schedule, _ = flags.GetString("schedule")
	}
	if flags.Changed("state-file") {
		cfg.StateFile, _ = flags.GetString("state-file")
	}
	if flags.Changed("caption") {
		cfg.Caption, _ = flags.GetString("caption")
	}
	if flags.Changed("dry-run") {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}
}

// RunCmd returns the run command
func RunCmd() *cobra.Command {
	return runCmd
}
