// Package timeouts provides centralized timeout values for handler and
// store operations.
//
//	Ping   health checks
//	Short  single-record mutations and lookups
//	Fetch  record source queries, including the full-category fetch
//	Long   startup work such as seeding and migrations
//	Batch  a whole bulk delete or bulk verify
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing  = 2 * time.Second
	DefaultShort = 5 * time.Second
	DefaultFetch = 15 * time.Second
	DefaultLong  = 30 * time.Second
	DefaultBatch = 60 * time.Second
)

// mu protects all timeout values from concurrent access.
var mu sync.RWMutex

// Configurable timeout values.
var (
	ping  = DefaultPing
	short = DefaultShort
	fetch = DefaultFetch
	long  = DefaultLong
	batch = DefaultBatch
)

// Ping returns the timeout for health checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for simple operations.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Fetch returns the timeout for record source queries.
func Fetch() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return fetch
}

// Long returns the timeout for complex operations.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Batch returns the timeout for bulk operations.
func Batch() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return batch
}

// Config holds timeout configuration values.
type Config struct {
	Ping  time.Duration
	Short time.Duration
	Fetch time.Duration
	Long  time.Duration
	Batch time.Duration
}

// Configure sets custom timeout values.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Fetch > 0 {
		fetch = cfg.Fetch
	}
	if cfg.Long > 0 {
		long = cfg.Long
	}
	if cfg.Batch > 0 {
		batch = cfg.Batch
	}
}

// Reset restores all timeouts to defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	short = DefaultShort
	fetch = DefaultFetch
	long = DefaultLong
	batch = DefaultBatch
}

// EnvPrefix prefixes the timeout environment variables, e.g.
// STRATADATA_TIMEOUT_FETCH=20s.
const EnvPrefix = "STRATADATA_TIMEOUT_"

// ConfigureFromEnv reads timeout overrides from the environment and
// returns how many were applied. Unparseable or non-positive values are
// ignored.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()

	targets := []struct {
		name string
		dst  *time.Duration
	}{
		{"PING", &ping},
		{"SHORT", &short},
		{"FETCH", &fetch},
		{"LONG", &long},
		{"BATCH", &batch},
	}

	configured := 0
	for _, tgt := range targets {
		v := os.Getenv(EnvPrefix + tgt.name)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*tgt.dst = d
			configured++
		}
	}
	return configured
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{
		Ping:  ping,
		Short: short,
		Fetch: fetch,
		Long:  long,
		Batch: batch,
	}
}

// WithTimeout creates a context with timeout and logging.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
