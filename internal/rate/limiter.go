package rate

import (
	"context"
	"strconv"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed bool
	Count   int
	ResetAt time.Time
}

// RetryAfter reports how long the caller should wait before the window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.IsZero() || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Store performs an atomic check-and-count for one key.
type Store interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// Config holds the limits applied when a caller leaves them unspecified.
type Config struct {
	DefaultLimit  int
	DefaultWindow time.Duration
}

// Limiter resolves defaults and keys before delegating to a [Store].
type Limiter struct {
	store  Store
	config Config
}

// New creates a [Limiter] over store.
func New(store Store, cfg Config) *Limiter {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	if cfg.DefaultWindow <= 0 {
		cfg.DefaultWindow = time.Hour
	}
	return &Limiter{
		store:  store,
		config: cfg,
	}
}

// Take counts one request for (principalID, endpoint). Non-positive limit or
// window fall back to the configured defaults.
func (l *Limiter) Take(ctx context.Context, principalID, endpoint string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		limit = l.config.DefaultLimit
	}
	if window <= 0 {
		window = l.config.DefaultWindow
	}
	return l.store.Take(ctx, Key(principalID, endpoint), limit, window)
}

// Store returns the underlying store.
func (l *Limiter) Store() Store {
	return l.store
}

// Key builds the counter key for a principal and endpoint. The principal is length
// prefixed so separators inside either part cannot make two pairs share a key.
func Key(principalID, endpoint string) string {
	return strconv.Itoa(len(principalID)) + ":" + principalID + ":" + endpoint
}
