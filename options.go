package livedeck

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// pluginConfig holds mutable state during Plugin construction.
type pluginConfig struct {
	liveAPIURL     string
	playerURL      string
	requestTimeout time.Duration
	inspectPort    int
	logger         *slog.Logger
	callbacks      []func(StateChange)
}

// Option is a function that configures a [Plugin] during construction.
//
// Options return an error if validation fails.
type Option func(*pluginConfig) error

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *pluginConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithLiveAPIURL overrides the liveness endpoint queried for every button.
// An empty string keeps the default.
//
// Returns an error if the URL is not http or https.
func WithLiveAPIURL(raw string) Option {
	return func(cfg *pluginConfig) error {
		if raw == "" {
			return nil
		}
		if err := checkHTTPURL(raw); err != nil {
			return fmt.Errorf("live API url: %w", err)
		}
		cfg.liveAPIURL = raw
		return nil
	}
}

// WithPlayerURL overrides the base of the channel page opened on key press.
// An empty string keeps the default.
func WithPlayerURL(raw string) Option {
	return func(cfg *pluginConfig) error {
		if raw == "" {
			return nil
		}
		if err := checkHTTPURL(raw); err != nil {
			return fmt.Errorf("player url: %w", err)
		}
		cfg.playerURL = raw
		return nil
	}
}

// WithRequestTimeout bounds each liveness request. Zero, the default,
// leaves only the transport's own timeouts.
//
// Returns an error if the duration is negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *pluginConfig) error {
		if d < 0 {
			return errors.New("request timeout cannot be negative")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithInspectPort enables the local inspect API on 127.0.0.1:port. Zero,
// the default, disables it.
//
// Returns an error if the port is outside 0-65535.
func WithInspectPort(port int) Option {
	return func(cfg *pluginConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("inspect port must be between 0 and 65535")
		}
		cfg.inspectPort = port
		return nil
	}
}

// WithStateCallback registers a function called after every completed poll.
//
// Multiple callbacks run in registration order from a single goroutine.
// Callbacks must not block; a slow callback delays later results. Panics are
// recovered and logged.
//
// Example:
//
//	p, err := livedeck.New(
//	    livedeck.WithStateCallback(func(c livedeck.StateChange) {
//	        if c.State == livedeck.StateLive {
//	            log.Printf("%s is live", c.StreamerID)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithStateCallback(cb func(StateChange)) Option {
	return func(cfg *pluginConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
