package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Source kinds
const (
	SourceLocal = "local" // folder on the local filesystem
	SourceDrive = "drive" // Google Drive folder
)

// State backends
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Corrupt-state policies
const (
	OnCorruptFail  = "fail"
	OnCorruptReset = "reset"
)

// Defaults
const (
	DefaultIntervalSeconds    = 24 * 60 * 60
	DefaultStateFile          = ".autopost_state.json"
	DefaultFile               = "autopost.yaml"
	DefaultHTTPTimeoutSeconds = 120
	DefaultMaxRetries         = 3
	DefaultCaption            = "{filename}"
)

// Config is the resolved autopost configuration.
type Config struct {
	Source             SourceConfig `yaml:"source"`
	X                  XConfig      `yaml:"x"`
	Caption            string       `yaml:"caption"`
	IntervalSeconds    int          `yaml:"interval_seconds"`
	Schedule           string       `yaml:"schedule"` // optional cron expression, overrides the interval
	StateFile          string       `yaml:"state_file"`
	StateBackend       string       `yaml:"state_backend"`
	OnCorruptState     string       `yaml:"on_corrupt_state"`
	HTTPTimeoutSeconds int          `yaml:"http_timeout_seconds"`
	MaxRetries         int          `yaml:"max_retries"`
	LogLevel           string       `yaml:"log_level"`
	LogFormat          string       `yaml:"log_format"`
	DryRun             bool         `yaml:"dry_run"`
}

// SourceConfig selects and locates the media source.
type SourceConfig struct {
	Kind            string `yaml:"kind"`
	Location        string `yaml:"location"`         // folder path or Drive folder ID
	CredentialsFile string `yaml:"credentials_file"` // service account JSON (drive only)
}

// XConfig holds OAuth 1.0a user credentials and API endpoints for X.
type XConfig struct {
	ConsumerKey       string `yaml:"consumer_key"`
	ConsumerSecret    string `yaml:"consumer_secret"`
	AccessToken       string `yaml:"access_token"`
	AccessTokenSecret string `yaml:"access_token_secret"`
	UploadURL         string `yaml:"upload_url,omitempty"`
	APIURL            string `yaml:"api_url,omitempty"`
}

// ConfigurationError names the option that failed validation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// Default returns a Config with every default applied and no source or credentials.
func Default() *Config {
	return &Config{
		Caption:            DefaultCaption,
		IntervalSeconds:    DefaultIntervalSeconds,
		StateFile:          DefaultStateFile,
		StateBackend:       BackendJSON,
		OnCorruptState:     OnCorruptFail,
		HTTPTimeoutSeconds: DefaultHTTPTimeoutSeconds,
		MaxRetries:         DefaultMaxRetries,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// File is an explicit YAML config path. Empty means ./autopost.yaml if present.
	File string
	// EnvFiles are dotenv files consulted after the process environment.
	// Missing files are skipped.
	EnvFiles []string
	// Lookup reads the process environment. Defaults to os.LookupEnv.
	Lookup func(key string) (string, bool)
}

// Load resolves configuration: defaults, then the YAML file, then environment.
// It does not validate; callers apply flag overrides and then call Validate.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path := opts.File
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.mergeFile(path, explicit); err != nil {
		return nil, err
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env, err := newEnv(lookup, opts.EnvFiles)
	if err != nil {
		return nil, err
	}
	if err := cfg.mergeEnv(env); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &ConfigurationError{Field: "config", Reason: fmt.Sprintf("failed to read %s: %v", path, err)}
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &ConfigurationError{Field: "config", Reason: fmt.Sprintf("failed to parse %s: %v", path, err)}
	}
	return nil
}

// env layers dotenv values under the process environment.
type env struct {
	lookup func(string) (string, bool)
	dotenv map[string]string
}

func newEnv(lookup func(string) (string, bool), files []string) (*env, error) {
	e := &env{lookup: lookup, dotenv: map[string]string{}}
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		values, err := godotenv.Read(file)
		if err != nil {
			return nil, &ConfigurationError{Field: "env_file", Reason: fmt.Sprintf("failed to parse %s: %v", file, err)}
		}
		for k, v := range values {
			if _, seen := e.dotenv[k]; !seen {
				e.dotenv[k] = v
			}
		}
	}
	return e, nil
}

func (e *env) get(key string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(e.dotenv[key])
}

func (e *env) setString(dst *string, key string) {
	if v := e.get(key); v != "" {
		*dst = v
	}
}

func (e *env) setInt(dst *int, key, field string) error {
	v := e.get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf("%s=%q is not an integer", key, v)}
	}
	*dst = n
	return nil
}

func (e *env) setBool(dst *bool, key, field string) error {
	v := e.get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf("%s=%q is not a boolean", key, v)}
	}
	*dst = b
	return nil
}

func (c *Config) mergeEnv(e *env) error {
	folder := e.get("GOOGLE_DRIVE_FOLDER_ID")
	dir := e.get("AUTOPOST_LOCAL_DIR")
	kind := e.get("AUTOPOST_SOURCE")
	if kind == "" {
		switch {
		case folder != "":
			kind = SourceDrive
		case dir != "":
			kind = SourceLocal
		}
	}
	if kind != "" {
		c.Source.Kind = kind
	}
	switch {
	case c.Source.Kind == SourceDrive && folder != "":
		c.Source.Location = folder
	case c.Source.Kind == SourceLocal && dir != "":
		c.Source.Location = dir
	}
	e.setString(&c.Source.CredentialsFile, "GOOGLE_SERVICE_ACCOUNT_FILE")

	e.setString(&c.X.ConsumerKey, "TWITTER_CONSUMER_KEY")
	e.setString(&c.X.ConsumerSecret, "TWITTER_CONSUMER_SECRET")
	e.setString(&c.X.AccessToken, "TWITTER_ACCESS_TOKEN")
	e.setString(&c.X.AccessTokenSecret, "TWITTER_ACCESS_TOKEN_SECRET")

	e.setString(&c.Caption, "TWEET_TEMPLATE")
	e.setString(&c.StateFile, "STATE_FILE")
	e.setString(&c.Schedule, "AUTOPOST_SCHEDULE")
	e.setString(&c.StateBackend, "AUTOPOST_STATE_BACKEND")
	e.setString(&c.OnCorruptState, "AUTOPOST_ON_CORRUPT_STATE")
	e.setString(&c.LogLevel, "LOG_LEVEL")
	e.setString(&c.LogFormat, "LOG_FORMAT")

	if err := e.setInt(&c.IntervalSeconds, "POST_INTERVAL_SECONDS", "interval_seconds"); err != nil {
		return err
	}
	if err := e.setInt(&c.HTTPTimeoutSeconds, "AUTOPOST_HTTP_TIMEOUT_SECONDS", "http_timeout_seconds"); err != nil {
		return err
	}
	if err := e.setInt(&c.MaxRetries, "AUTOPOST_MAX_RETRIES", "max_retries"); err != nil {
		return err
	}
	return e.setBool(&c.DryRun, "AUTOPOST_DRY_RUN", "dry_run")
}

// Validate checks every option. requirePublisher additionally demands X
// credentials; commands that never publish pass false.
func (c *Config) Validate(requirePublisher bool) error {
	switch c.Source.Kind {
	case SourceLocal, SourceDrive:
	case "":
		return &ConfigurationError{Field: "source.kind", Reason: "no media source configured (set GOOGLE_DRIVE_FOLDER_ID or AUTOPOST_LOCAL_DIR)"}
	default:
		return &ConfigurationError{Field: "source.kind", Reason: fmt.Sprintf("unknown source %q (want %s or %s)", c.Source.Kind, SourceLocal, SourceDrive)}
	}
	if c.Source.Location == "" {
		return &ConfigurationError{Field: "source.location", Reason: "missing source folder"}
	}
	if c.Source.Kind == SourceDrive && c.Source.CredentialsFile == "" {
		return &ConfigurationError{Field: "source.credentials_file", Reason: "missing required environment variable: GOOGLE_SERVICE_ACCOUNT_FILE"}
	}

	if requirePublisher {
		required := []struct {
			value, field, env string
		}{
			{c.X.ConsumerKey, "x.consumer_key", "TWITTER_CONSUMER_KEY"},
			{c.X.ConsumerSecret, "x.consumer_secret", "TWITTER_CONSUMER_SECRET"},
			{c.X.AccessToken, "x.access_token", "TWITTER_ACCESS_TOKEN"},
			{c.X.AccessTokenSecret, "x.access_token_secret", "TWITTER_ACCESS_TOKEN_SECRET"},
		}
		for _, r := range required {
			if r.value == "" {
				return &ConfigurationError{Field: r.field, Reason: "missing required environment variable: " + r.env}
			}
		}
	}

	if c.IntervalSeconds <= 0 {
		return &ConfigurationError{Field: "interval_seconds", Reason: fmt.Sprintf("must be positive (got %d)", c.IntervalSeconds)}
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return &ConfigurationError{Field: "schedule", Reason: fmt.Sprintf("invalid cron expression %q: %v", c.Schedule, err)}
		}
	}
	if c.StateFile == "" {
		return &ConfigurationError{Field: "state_file", Reason: "must not be empty"}
	}
	if c.StateBackend != BackendJSON && c.StateBackend != BackendSQLite {
		return &ConfigurationError{Field: "state_backend", Reason: fmt.Sprintf("unknown backend %q (want %s or %s)", c.StateBackend, BackendJSON, BackendSQLite)}
	}
	if c.OnCorruptState != OnCorruptFail && c.OnCorruptState != OnCorruptReset {
		return &ConfigurationError{Field: "on_corrupt_state", Reason: fmt.Sprintf("unknown policy %q (want %s or %s)", c.OnCorruptState, OnCorruptFail, OnCorruptReset)}
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return &ConfigurationError{Field: "http_timeout_seconds", Reason: fmt.Sprintf("must be positive (got %d)", c.HTTPTimeoutSeconds)}
	}
	if c.MaxRetries < 0 {
		return &ConfigurationError{Field: "max_retries", Reason: fmt.Sprintf("must not be negative (got %d)", c.MaxRetries)}
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return &ConfigurationError{Field: "log_level", Reason: err.Error()}
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return &ConfigurationError{Field: "log_format", Reason: fmt.Sprintf("unknown format %q (want text or json)", c.LogFormat)}
	}
	return nil
}

// Interval returns the fixed delay between cycles.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// HTTPTimeout returns the per-request timeout for network collaborators.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// DefaultSQLiteStateFile replaces DefaultStateFile for the sqlite backend.
const DefaultSQLiteStateFile = ".autopost_state.db"

// StatePath returns the state location for the selected backend.
func (c *Config) StatePath() string {
	if c.StateBackend == BackendSQLite && c.StateFile == DefaultStateFile {
		return DefaultSQLiteStateFile
	}
	return c.StateFile
}

// HasPublisherCredentials reports whether all four X credentials are set.
func (c *Config) HasPublisherCredentials() bool {
	return c.X.ConsumerKey != "" && c.X.ConsumerSecret != "" &&
		c.X.AccessToken != "" && c.X.AccessTokenSecret != ""
}
