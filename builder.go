package goGuard

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/internal/logger"
	"github.com/MrEthical07/goGuard/internal/rate"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimitStore is the counter backend of the limiter. Take must perform the
// check-and-count for key atomically. Implementations in this module: the default
// in-process store and the Redis store selected by [Builder.WithRedis].
type RateLimitStore = rate.Store

// RateLimitDecision is the outcome returned by a [RateLimitStore].
type RateLimitDecision = rate.Decision

// Builder assembles an [Engine]. It is single-use: Build may only succeed once.
type Builder struct {
	config Config
	err    error

	store    RateLimitStore
	redis    redis.UniversalClient
	sink     AuditSink
	identity IdentityProvider
	logger   *logger.Logger

	now   func() time.Time
	newID func() string

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. Zero fields are filled from DefaultConfig.
func (b *Builder) WithConfig(cfg Config) *Builder {
	merged, err := withDefaults(cfg)
	if err != nil {
		b.err = fmt.Errorf("apply config defaults: %w", err)
		return b
	}
	b.config = merged
	return b
}

// WithRateLimitStore injects a custom counter store. It takes precedence over WithRedis.
func (b *Builder) WithRateLimitStore(store RateLimitStore) *Builder {
	b.store = store
	return b
}

// WithRedis selects the shared Redis counter store, keyed under
// Config.RateLimit.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink enables audit recording into sink. A sink that also implements
// [AuditPurger] receives retention purges.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithIdentityProvider sets the backend used by the MFA orchestrator.
func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.identity = p
	return b
}

// WithLogger sets the diagnostic logger. The default discards everything.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = logger.Wrap(l)
	return b
}

// WithMetricsEnabled toggles counters and the latency histogram.
func (b *Builder) WithMetricsEnabled(enabled, latency bool) *Builder {
	b.config.Metrics.Enabled = enabled
	b.config.Metrics.EnableLatencyHistograms = latency
	return b
}

// WithClock overrides the time source used for audit timestamps and the in-process
// store.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithIDGenerator overrides audit event id generation.
func (b *Builder) WithIDGenerator(newID func() string) *Builder {
	b.newID = newID
	return b
}

// Build validates the configuration and starts the audit dispatcher and janitor.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("goGuard: builder already used")
	}
	if b.err != nil {
		return nil, b.err
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	cfg := b.config
	log := b.logger
	if log == nil {
		log = logger.Nop()
	}

	e := &Engine{
		config:    cfg,
		identity:  b.identity,
		mfa:       make(map[string]*MFAOrchestrator),
		metrics:   NewMetrics(cfg.Metrics),
		logger:    log,
		limitWarn: logger.NewThrottle(cfg.RateLimit.WarnInterval),
		sinkWarn:  logger.NewThrottle(cfg.Audit.WarnInterval),
		now:       b.now,
		newID:     b.newID,
	}

	store := b.store
	switch {
	case store != nil:
	case b.redis != nil:
		store = rate.NewRedisStore(b.redis, cfg.RateLimit.RedisPrefix)
	default:
		var opts []rate.MemoryOption
		if b.now != nil {
			opts = append(opts, rate.WithClock(b.now))
		}
		e.memoryStore = rate.NewMemoryStore(opts...)
		store = e.memoryStore
	}
	if ms, ok := store.(*rate.MemoryStore); ok {
		e.memoryStore = ms
	}
	e.limiter = rate.New(store, rate.Config{
		DefaultLimit:  cfg.RateLimit.DefaultMaxRequests,
		DefaultWindow: cfg.RateLimit.DefaultWindow,
	})

	if b.sink != nil {
		e.audit = audit.NewDispatcher[AuditEvent](audit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: !cfg.Audit.BlockIfFull,
		}, b.sink, e.onSinkError)
		if p, ok := b.sink.(AuditPurger); ok {
			e.purger = p
		}
	}

	janitor, err := e.startJanitor()
	if err != nil {
		e.Close()
		return nil, err
	}
	e.janitor = janitor

	b.built = true
	return e, nil
}
