package chimestock

import (
	"errors"
	"log/slog"
	"time"
)

// storeConfig holds mutable state during Store construction.
type storeConfig struct {
	interval       time.Duration
	timeout        time.Duration
	maxConcurrency int
	marker         string
	debug          bool
	logger         *slog.Logger
	notifier       Notifier
	callbacks      []func(Snapshot)
}

// Option is a function that configures a [Store] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithInterval], [WithTimeout], [WithMarker],
// [WithMaxConcurrency], [WithDebug], [WithLogger], [WithNotifier],
// [WithChangeCallback].
type Option func(*storeConfig) error

// WithInterval sets the time between poll cycles for [Store.Run].
//
// Defaults to 15 minutes if not specified. Intervals much shorter than a
// few minutes risk the shop blacklisting the watcher; no lower bound is
// enforced here beyond positivity, so short intervals remain available
// for testing.
//
// Returns an error if the duration is zero or negative.
func WithInterval(d time.Duration) Option {
	return func(cfg *storeConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.interval = d
		return nil
	}
}

// WithTimeout sets the per-fetch HTTP timeout.
//
// Every page fetch runs under this timeout; a hung server fails the fetch
// rather than stalling the poll cycle. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *storeConfig) error {
		if d <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithMarker sets the pattern whose presence in a fetched page denotes
// availability.
//
// The pattern is compiled as a regular expression; a plain substring such
// as the default "In stock" works unchanged. Matching is case-sensitive
// unless the pattern says otherwise.
//
// Returns an error if the pattern is empty. An invalid regular expression
// is reported by [New] when the pattern is compiled.
func WithMarker(pattern string) Option {
	return func(cfg *storeConfig) error {
		if pattern == "" {
			return errors.New("marker pattern cannot be empty")
		}
		cfg.marker = pattern
		return nil
	}
}

// WithMaxConcurrency sets the maximum number of concurrent page fetches
// within a single poll cycle.
//
// Refreshes inside a cycle are independent and run concurrently up to this
// limit; the cycle completes only when all of them have. Defaults to 10.
//
// Returns an error if the value is zero or negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *storeConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithDebug enables debug mode.
//
// In debug mode every poll cycle reports all tracked items as newly and
// currently in stock, exercising the notification path without waiting for
// a real state change.
func WithDebug(debug bool) Option {
	return func(cfg *storeConfig) error {
		cfg.debug = debug
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Store.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *storeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithNotifier sets the [Notifier] used when a poll cycle finds newly
// in-stock items.
//
// Without a notifier the Store still polls and tracks state; it just has
// nowhere to send mail. Nil notifiers are silently ignored.
func WithNotifier(n Notifier) Option {
	return func(cfg *storeConfig) error {
		if n == nil {
			return nil
		}
		cfg.notifier = n
		return nil
	}
}

// WithChangeCallback registers a function called with every [Snapshot]
// produced by a successful poll cycle.
//
// Multiple callbacks may be registered; they execute in registration order
// after the cycle's aggregates are updated. Callbacks must be non-blocking;
// long-running work should be dispatched to a separate goroutine.
//
// Panics within callbacks are recovered and logged with a correlation ID;
// they do not crash the poll loop. Nil callbacks are silently ignored.
func WithChangeCallback(cb func(Snapshot)) Option {
	return func(cfg *storeConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}
