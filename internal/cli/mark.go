package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/autopost/internal/wire"
)

var markCmd = &cobra.Command{
	Use:   "mark <item-id>",
	Short: "Record a video as posted without publishing it",
	Long: `Record a video as posted. Use this to reconcile the state after a post
went live but could not be recorded, or to skip a video permanently.

The item ID is the file name for local sources and the Drive file ID for
Drive sources (see 'autopost status').

Examples:
  autopost mark sunset.mp4
  autopost mark 1AbCdEf --post-id 1789012345678901234`,
	Args: cobra.ExactArgs(1),
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

		postID, _ := cmd.Flags().GetString("post-id")
		adapter, err := wire.CycleAdapterWithOutput(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return adapter.Mark(cmd.Context(), args[0], postID)
	},
}

func init() {
	markCmd.Flags().String("post-id", "", "platform post ID, if known")
	markCmd.Flags().String("state-file", "", "posted-state file")
}

// MarkCmd returns the mark command
func MarkCmd() *cobra.Command {
	return markCmd
}
