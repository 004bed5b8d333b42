package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/autopost/internal/wire"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List source videos in posting order with their posted state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("state-file") {
			cfg.StateFile, _ = cmd.Flags().GetString("state-file")
		}
		if _, err := start(cfg, false); err != nil {
			return err
		}
		defer wire.Close()

		adapter, err := wire.CycleAdapterWithOutput(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		_, err = adapter.Status(cmd.Context())
		return err
	},
}

func init() {
	statusCmd.Flags().String("state-file", "", "posted-state file")
}

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	return statusCmd
}
