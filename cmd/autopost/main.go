package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/autopost/internal/cli"
	"github.com/example/autopost/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "autopost",
		Short:   "autopost - post videos from a folder to X, oldest first, exactly once",
		Version: version.String(),
		Long: `autopost publishes one video per cycle from a local folder or Google Drive
folder to X, oldest first, and remembers what it has posted so a video is never
posted twice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.BindGlobalFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(cli.RunCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.MarkCmd())
	rootCmd.AddCommand(cli.DoctorCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if code := cli.ExitCode(err); code != cli.ExitOK {
		fmt.Fprintln(os.Stderr, "autopost:", err)
		os.Exit(code)
	}
}
