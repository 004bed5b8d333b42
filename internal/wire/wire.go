// Package wire provides dependency injection for autopost.
// It creates singleton services with lazy initialization from the resolved
// configuration.
package wire

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	cliadapter "github.com/example/autopost/internal/adapters/cli"
	"github.com/example/autopost/internal/adapters/filesystem"
	"github.com/example/autopost/internal/adapters/gdrive"
	"github.com/example/autopost/internal/adapters/jsonstate"
	"github.com/example/autopost/internal/adapters/sqlite"
	"github.com/example/autopost/internal/adapters/xapi"
	"github.com/example/autopost/internal/app"
	"github.com/example/autopost/internal/config"
	"github.com/example/autopost/internal/ports/primary"
	"github.com/example/autopost/internal/ports/secondary"
)

var (
	cfg    *config.Config
	logger *logrus.Logger

	cycleService primary.CycleService
	scheduler    primary.Scheduler
	source       secondary.ItemSource
	store        secondary.StateStore
	closers      []io.Closer
	initErr      error
	once         sync.Once
)

// Configure sets the configuration used by later accessors. It must be
// called before any accessor and resets previously built services.
func Configure(c *config.Config, l *logrus.Logger) {
	Close()
	cfg = c
	logger = l
	once = sync.Once{}
	cycleService, scheduler, source, store, initErr = nil, nil, nil, nil, nil
}

// CycleService returns the singleton CycleService instance.
func CycleService(ctx context.Context) (primary.CycleService, error) {
	once.Do(func() { initServices(ctx) })
	return cycleService, initErr
}

// Scheduler returns the singleton Scheduler instance.
func Scheduler(ctx context.Context) (primary.Scheduler, error) {
	once.Do(func() { initServices(ctx) })
	return scheduler, initErr
}

// ItemSource returns the configured source.
func ItemSource(ctx context.Context) (secondary.ItemSource, error) {
	once.Do(func() { initServices(ctx) })
	return source, initErr
}

// StateStore returns the configured state store.
func StateStore(ctx context.Context) (secondary.StateStore, error) {
	once.Do(func() { initServices(ctx) })
	return store, initErr
}

// CycleAdapter returns a new CycleAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func CycleAdapter(ctx context.Context) (*cliadapter.CycleAdapter, error) {
	return CycleAdapterWithOutput(ctx, os.Stdout)
}

// CycleAdapterWithOutput returns a new CycleAdapter writing to the given output.
// This variant allows testing or alternate output destinations.
func CycleAdapterWithOutput(ctx context.Context, out io.Writer) (*cliadapter.CycleAdapter, error) {
	service, err := CycleService(ctx)
	if err != nil {
		return nil, err
	}
	return cliadapter.NewCycleAdapter(service, out), nil
}

// Close releases resources held by built services.
func Close() error {
	var firstErr error
	for _, c := range closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	closers = nil
	return firstErr
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices(ctx context.Context) {
	if cfg == nil {
		initErr = fmt.Errorf("wire: Configure was not called")
		return
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// Create adapters (secondary ports)
	source, initErr = newItemSource(ctx, cfg)
	if initErr != nil {
		return
	}
	store, initErr = newStateStore(cfg)
	if initErr != nil {
		return
	}

	var publisher primary.Publisher
	if cfg.HasPublisherCredentials() {
		publisher = app.NewPublisher(xapi.NewClient(xapi.Config{
			ConsumerKey:       cfg.X.ConsumerKey,
			ConsumerSecret:    cfg.X.ConsumerSecret,
			AccessToken:       cfg.X.AccessToken,
			AccessTokenSecret: cfg.X.AccessTokenSecret,
			UploadURL:         cfg.X.UploadURL,
			APIURL:            cfg.X.APIURL,
			Timeout:           cfg.HTTPTimeout(),
			MaxRetries:        cfg.MaxRetries,
			Logger:            logger,
		}))
	}

	// Create services (primary ports implementation)
	cycleService = app.NewCycleService(source, store, publisher, app.CycleOptions{
		CaptionTemplate:   cfg.Caption,
		ResetCorruptState: cfg.OnCorruptState == config.OnCorruptReset,
		DryRun:            cfg.DryRun,
	}, logger)

	scheduler, initErr = app.NewScheduler(cycleService, cfg.Interval(), cfg.Schedule, logger)
}

func newItemSource(ctx context.Context, c *config.Config) (secondary.ItemSource, error) {
	switch c.Source.Kind {
	case config.SourceLocal:
		return filesystem.NewVideoDirSource(c.Source.Location), nil
	case config.SourceDrive:
		driveSource, err := gdrive.NewDriveSource(ctx, c.Source.Location, c.Source.CredentialsFile,
			option.WithUserAgent("autopost"))
		if err != nil {
			return nil, err
		}
		driveSource.SetRetryPolicy(c.MaxRetries, 0)
		return driveSource, nil
	default:
		return nil, &config.ConfigurationError{Field: "source.kind", Reason: fmt.Sprintf("unknown source %q", c.Source.Kind)}
	}
}

func newStateStore(c *config.Config) (secondary.StateStore, error) {
	switch c.StateBackend {
	case config.BackendSQLite:
		repo, err := sqlite.OpenStateStore(c.StatePath())
		if err != nil {
			return nil, err
		}
		closers = append(closers, repo)
		return repo, nil
	default:
		return jsonstate.NewStore(c.StatePath()), nil
	}
}
