// Package cli provides CLI commands for autopost.
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/example/autopost/internal/config"
	"github.com/example/autopost/internal/logging"
	"github.com/example/autopost/internal/wire"
)

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigFile string
	EnvFiles   []string
	LogLevel   string
	LogFormat  string
}

var globalOpts = GlobalOptions{EnvFiles: []string{".env"}}

// BindGlobalFlags registers the persistent flags on the root command.
func BindGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVar(&globalOpts.ConfigFile, "config", "", "YAML config file (default ./autopost.yaml if present)")
	flags.StringSliceVar(&globalOpts.EnvFiles, "env-file", globalOpts.EnvFiles, "dotenv files read under the process environment")
	flags.StringVar(&globalOpts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&globalOpts.LogFormat, "log-format", "", "log format: text or json")
}

// loadConfig resolves configuration from file and environment, then applies
// the global flag overrides. It does not validate.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		File:     globalOpts.ConfigFile,
		EnvFiles: globalOpts.EnvFiles,
	})
	if err != nil {
		return nil, err
	}
	if globalOpts.LogLevel != "" {
		cfg.LogLevel = globalOpts.LogLevel
	}
	if globalOpts.LogFormat != "" {
		cfg.LogFormat = globalOpts.LogFormat
	}
	return cfg, nil
}

// start validates cfg, builds the logger and hands both to wire.
func start(cfg *config.Config, requirePublisher bool) (*logrus.Logger, error) {
	if err := cfg.Validate(requirePublisher); err != nil {
		return nil, err
	}
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	wire.Configure(cfg, logger)
	return logger, nil
}
