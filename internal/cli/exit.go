package cli

import (
	"context"
	"errors"

	"github.com/example/autopost/internal/config"
	"github.com/example/autopost/internal/ports/primary"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfig      = 2
	ExitStoreFailed = 3
)

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ExitOK
	case config.IsConfigurationError(err):
		return ExitConfig
	case primary.IsFatal(err):
		return ExitStoreFailed
	default:
		return ExitFailure
	}
}
