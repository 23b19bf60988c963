// Package config provides the unified configuration system for Tideflow.
// It defines a single Config structure covering the replication engine,
// the remote API client, state persistence, the sink, and observability.
//
// Example usage:
//
//	cfg, err := config.Load("tideflow.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	start, _ := cfg.StartTime()
package config

import (
	"time"

	"github.com/tideflow-io/tideflow/pkg/errors"
)

const (
	// DefaultPageSize is the number of records requested per page
	DefaultPageSize = 250

	// DefaultWindowSizeDays bounds a single extraction window. Larger
	// windows have been observed to destabilize remote collection
	// endpoints (500s on wide date ranges), so the default stays small.
	DefaultWindowSizeDays = 1
)

// Config is the single configuration structure for a Tideflow sync run
type Config struct {
	// StartDate is the initial replication cursor used when a stream has
	// no committed bookmark yet (RFC 3339 or YYYY-MM-DD)
	StartDate string `yaml:"start_date" json:"start_date" mapstructure:"start_date"`

	// EndDate optionally bounds the sync; empty means "now"
	EndDate string `yaml:"end_date,omitempty" json:"end_date,omitempty" mapstructure:"end_date"`

	// WindowSizeDays is the width of one extraction window in days
	WindowSizeDays float64 `yaml:"window_size_days" json:"window_size_days" mapstructure:"window_size_days"`

	// PageSize is the per-request record limit
	PageSize int `yaml:"page_size" json:"page_size" mapstructure:"page_size"`

	// UseAsync opts into the concurrent paging strategy for streams that
	// declare themselves compatible with it
	UseAsync bool `yaml:"use_async" json:"use_async" mapstructure:"use_async"`

	// Plan is the remote account tier driving the concurrency allowance
	// ("plus" accounts are granted a larger bucket)
	Plan string `yaml:"plan" json:"plan" mapstructure:"plan"`

	// ConcurrencyBudget overrides the plan-derived allowance when > 0
	ConcurrencyBudget int `yaml:"concurrency_budget,omitempty" json:"concurrency_budget,omitempty" mapstructure:"concurrency_budget"`

	// API configures the remote collection endpoint client
	API APIConfig `yaml:"api" json:"api" mapstructure:"api"`

	// Retry configures the transient-error retry policy
	Retry RetryConfig `yaml:"retry" json:"retry" mapstructure:"retry"`

	// State configures bookmark persistence
	State StateConfig `yaml:"state" json:"state" mapstructure:"state"`

	// Sink configures the downstream record sink
	Sink SinkConfig `yaml:"sink" json:"sink" mapstructure:"sink"`

	// Logging configures the structured logger
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`

	// Streams declares the stream catalog; empty means the built-in catalog
	Streams []StreamConfig `yaml:"streams,omitempty" json:"streams,omitempty" mapstructure:"streams"`
}

// APIConfig configures the remote collection API client
type APIConfig struct {
	// BaseURL is the collection API root, e.g. https://shop.example.com/admin
	BaseURL string `yaml:"base_url" json:"base_url" mapstructure:"base_url"`
	// Token is the bearer token sent with every request
	Token string `yaml:"token" json:"token" mapstructure:"token"`
	// RequestTimeout bounds a single HTTP exchange
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" mapstructure:"request_timeout"`
	// RateLimitPerSec throttles outbound requests locally, below the
	// remote's leaky bucket (0 = no local throttle)
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	// RateBurst is the local throttle burst size
	RateBurst int `yaml:"rate_burst" json:"rate_burst" mapstructure:"rate_burst"`
}

// RetryConfig configures the bounded-backoff retry path (5xx / decode errors).
// Rate-limit waits are always server-dictated and are not configured here.
type RetryConfig struct {
	// MaxAttempts is the total number of calls before RetryExhausted
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" mapstructure:"max_attempts"`
	// InitialDelay is the first backoff delay
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay" mapstructure:"initial_delay"`
	// MaxDelay caps the backoff delay
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay" mapstructure:"max_delay"`
	// Multiplier grows the delay between attempts
	Multiplier float64 `yaml:"multiplier" json:"multiplier" mapstructure:"multiplier"`
}

// StateConfig configures bookmark persistence
type StateConfig struct {
	// Path is the SQLite database file holding bookmarks
	Path string `yaml:"path" json:"path" mapstructure:"path"`
}

// SinkConfig configures the downstream sink
type SinkConfig struct {
	// Directory receives one JSONL file per stream
	Directory string `yaml:"directory" json:"directory" mapstructure:"directory"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level" mapstructure:"level"`
	Encoding    string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
	Development bool   `yaml:"development" json:"development" mapstructure:"development"`
}

// MetricsConfig configures the Prometheus listener
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" json:"addr" mapstructure:"addr"`
}

// StreamConfig declares one replicable stream
type StreamConfig struct {
	// Name identifies the stream and keys its bookmark
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// Endpoint is the collection path relative to the API base URL
	Endpoint string `yaml:"endpoint" json:"endpoint" mapstructure:"endpoint"`
	// ResultKey is the response field holding the record list
	ResultKey string `yaml:"result_key" json:"result_key" mapstructure:"result_key"`
	// Async marks the stream compatible with the concurrent strategy
	Async bool `yaml:"async" json:"async" mapstructure:"async"`
}

// Validate checks required fields and fills defaults
func (c *Config) Validate() error {
	if c.StartDate == "" {
		return errors.New(errors.ErrorTypeConfig, "start_date is required")
	}
	if _, err := c.StartTime(); err != nil {
		return err
	}
	if _, err := c.EndTime(); err != nil {
		return err
	}
	if c.API.BaseURL == "" {
		return errors.New(errors.ErrorTypeConfig, "api.base_url is required")
	}

	if c.WindowSizeDays <= 0 {
		c.WindowSizeDays = DefaultWindowSizeDays
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = 30 * time.Second
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 5
	}
	if c.Retry.InitialDelay <= 0 {
		c.Retry.InitialDelay = 1 * time.Second
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = 2 * time.Minute
	}
	if c.Retry.Multiplier <= 0 {
		c.Retry.Multiplier = 2.0
	}
	if c.State.Path == "" {
		c.State.Path = "tideflow-state.db"
	}
	if c.Sink.Directory == "" {
		c.Sink.Directory = "output"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "json"
	}

	for i := range c.Streams {
		s := &c.Streams[i]
		if s.Name == "" {
			return errors.New(errors.ErrorTypeConfig, "stream name is required")
		}
		if s.Endpoint == "" {
			s.Endpoint = s.Name
		}
		if s.ResultKey == "" {
			s.ResultKey = s.Name
		}
	}

	return nil
}

// StartTime parses the configured start date
func (c *Config) StartTime() (time.Time, error) {
	t, err := parseDate(c.StartDate)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid start_date")
	}
	return t, nil
}

// EndTime parses the configured end date; nil means "sync to now"
func (c *Config) EndTime() (*time.Time, error) {
	if c.EndDate == "" {
		return nil, nil
	}
	t, err := parseDate(c.EndDate)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid end_date")
	}
	return &t, nil
}

// WindowSize returns the extraction window width as a duration
func (c *Config) WindowSize() time.Duration {
	return time.Duration(c.WindowSizeDays * float64(24*time.Hour))
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Newf(errors.ErrorTypeConfig, "unrecognized date %q", s)
}
