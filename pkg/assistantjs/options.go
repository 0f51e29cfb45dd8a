package assistantjs

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig controls the transport. It is fixed for the lifetime of a session.
type RetryConfig struct {
	AutoRetry  bool
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		AutoRetry:  true,
		MaxRetries: 3,
		RetryDelay: time.Second,
		Timeout:    30 * time.Second,
	}
}

// RetryOverrides is a partial RetryConfig; nil fields keep the default.
type RetryOverrides struct {
	AutoRetry  *bool
	MaxRetries *int
	RetryDelay *time.Duration
	Timeout    *time.Duration
}

func (o *RetryOverrides) merge(base RetryConfig) (RetryConfig, error) {
	if o != nil {
		if o.AutoRetry != nil {
			base.AutoRetry = *o.AutoRetry
		}
		if o.MaxRetries != nil {
			base.MaxRetries = *o.MaxRetries
		}
		if o.RetryDelay != nil {
			base.RetryDelay = *o.RetryDelay
		}
		if o.Timeout != nil {
			base.Timeout = *o.Timeout
		}
	}
	switch {
	case base.MaxRetries < 0:
		return base, newError(KindValidation, "maxRetries must not be negative")
	case base.RetryDelay <= 0:
		return base, newError(KindValidation, "retryDelay must be positive")
	case base.Timeout <= 0:
		return base, newError(KindValidation, "timeout must be positive")
	}
	return base, nil
}

// InitOptions are the optional arguments of Init.
type InitOptions struct {
	// BaseURL wins over the origin-derived default.
	BaseURL        string
	UserIdentifier string
	Metadata       map[string]any
	Retry          *RetryOverrides
}

// Sleeper waits between retry attempts. It must return early with the
// context's error when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

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

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithOriginResolver replaces the strategy used to find the host origin when
// Init is not given an explicit base URL.
func WithOriginResolver(r OriginResolver) Option {
	return func(c *Client) {
		if r != nil {
			c.origin = r
		}
	}
}

func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}
