// Package xapi publishes videos to X: chunked media upload on the v1.1
// endpoint, then a v2 post referencing the media.
package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"

	"github.com/example/autopost/internal/ports/secondary"
)

const (
	DefaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	DefaultAPIURL    = "https://api.twitter.com/2"

	defaultChunkSize      = 4 << 20
	defaultTimeout        = 120 * time.Second
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 30 * time.Second
	maxStatusPolls        = 120
)

// Config configures a Client.
type Config struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string

	UploadURL string // empty means DefaultUploadURL
	APIURL    string // empty means DefaultAPIURL

	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	ChunkSize      int

	Logger *logrus.Logger
}

// Client implements secondary.PlatformClient against the X API.
type Client struct {
	http      *http.Client
	uploadURL string
	apiURL    string
	chunkSize int
	executor  failsafe.Executor[*http.Response]
	logger    *logrus.Logger

	// sleep waits between media processing status polls.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates an OAuth 1.0a user-context client.
func NewClient(cfg Config) *Client {
	if cfg.UploadURL == "" {
		cfg.UploadURL = DefaultUploadURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	httpClient := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret).
		Client(oauth1.NoContext, oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret))
	httpClient.Timeout = cfg.Timeout

	return &Client{
		http:      httpClient,
		uploadURL: cfg.UploadURL,
		apiURL:    strings.TrimRight(cfg.APIURL, "/"),
		chunkSize: cfg.ChunkSize,
		executor:  failsafe.With(newRetryPolicy(cfg)),
		logger:    cfg.Logger,
		sleep:     sleepContext,
	}
}

// Name returns the platform name.
func (c *Client) Name() string {
	return "x"
}

// APIError is a non-2xx response from the X API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if retried.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

//nolint:bodyclose // false positive: [*http.Response] is a generic type parameter, not an actual response
func newRetryPolicy(cfg Config) retrypolicy.RetryPolicy[*http.Response] {
	base, maxDelay := cfg.RetryBaseDelay, cfg.RetryMaxDelay
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	if maxDelay < base {
		maxDelay = defaultRetryMaxDelay
		if maxDelay < base {
			maxDelay = base
		}
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	logger := cfg.Logger

	return retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(_ *http.Response, err error) bool {
			return shouldRetry(err)
		}).
		WithBackoff(base, maxDelay).
		WithMaxRetries(retries).
		WithJitterFactor(0.1).
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"attempt": e.Attempts(),
					"error":   e.LastError(),
				}).Warn("retrying X API request")
			}
		}).
		Build()
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var final *finalError
	if errors.As(err, &final) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// finalError stops retries for an otherwise retryable failure.
type finalError struct {
	err error
}

func (e *finalError) Error() string { return e.err.Error() }
func (e *finalError) Unwrap() error { return e.err }

// do sends a request built fresh for every attempt. Non-2xx responses are
// drained and returned as *APIError; on success the caller owns the body.
// Non-idempotent requests are retried only on 429, where the server did not
// act on the request.
func (c *Client) do(ctx context.Context, op string, idempotent bool, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	return c.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, &finalError{err: err}
		}
		resp, err := c.http.Do(req)
		if err != nil {
			err = fmt.Errorf("%s: %w", op, err)
			if !idempotent {
				return nil, &finalError{err: err}
			}
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
			if !idempotent && resp.StatusCode != http.StatusTooManyRequests {
				return nil, &finalError{err: apiErr}
			}
			return nil, apiErr
		}
		return resp, nil
	})
}

// doJSON sends the request and decodes a JSON body into out, if out is non-nil.
func (c *Client) doJSON(ctx context.Context, op string, idempotent bool, out any, build func(ctx context.Context) (*http.Request, error)) error {
	resp, err := c.do(ctx, op, idempotent, build)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ensure Client implements the interface
var _ secondary.PlatformClient = (*Client)(nil)
