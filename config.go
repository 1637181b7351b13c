package goGuard

import (
	"errors"
	"time"

	"dario.cat/mergo"
	"github.com/robfig/cron/v3"
)

// Config holds every tunable of the Engine. Zero values mean "use the default", so a
// partially filled Config passed to [Builder.WithConfig] is completed from
// [DefaultConfig]. Booleans default to false for the same reason.
type Config struct {
	RateLimit RateLimitConfig `toml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Audit     AuditConfig     `toml:"audit" envPrefix:"AUDIT_"`
	MFA       MFAConfig       `toml:"mfa" envPrefix:"MFA_"`
	Metrics   MetricsConfig   `toml:"metrics" envPrefix:"METRICS_"`
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig controls the fixed-window limiter.
type RateLimitConfig struct {
	// DefaultMaxRequests applies when a secure action leaves MaxRequests unset.
	DefaultMaxRequests int `toml:"default_max_requests" env:"DEFAULT_MAX_REQUESTS"`
	// DefaultWindow applies when a secure action leaves Window unset.
	DefaultWindow time.Duration `toml:"default_window" env:"DEFAULT_WINDOW"`
	// SweepInterval is how often expired in-memory entries are reclaimed.
	SweepInterval time.Duration `toml:"sweep_interval" env:"SWEEP_INTERVAL"`
	// RedisPrefix namespaces counter keys when a Redis store is used.
	RedisPrefix string `toml:"redis_prefix" env:"REDIS_PREFIX"`
	// WarnInterval throttles the fail-open warning.
	WarnInterval time.Duration `toml:"warn_interval" env:"WARN_INTERVAL"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls async audit delivery. Auditing is active whenever a sink is
// configured on the Builder.
type AuditConfig struct {
	BufferSize int `toml:"buffer_size" env:"BUFFER_SIZE"`
	// BlockIfFull makes Record wait for buffer space instead of dropping the event.
	BlockIfFull bool `toml:"block_if_full" env:"BLOCK_IF_FULL"`
	// Retention, when positive, purges older events from sinks that support it.
	Retention time.Duration `toml:"retention" env:"RETENTION"`
	// PurgeSchedule is a cron spec for the retention purge.
	PurgeSchedule string `toml:"purge_schedule" env:"PURGE_SCHEDULE"`
	// WarnInterval throttles sink failure warnings.
	WarnInterval time.Duration `toml:"warn_interval" env:"WARN_INTERVAL"`
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig controls enrollment labels and the brute-force quotas of MFA operations.
type MFAConfig struct {
	Issuer       string `toml:"issuer" env:"ISSUER"`
	FriendlyName string `toml:"friendly_name" env:"FRIENDLY_NAME"`

	VerifyMaxRequests    int           `toml:"verify_max_requests" env:"VERIFY_MAX_REQUESTS"`
	VerifyWindow         time.Duration `toml:"verify_window" env:"VERIFY_WINDOW"`
	ChallengeMaxRequests int           `toml:"challenge_max_requests" env:"CHALLENGE_MAX_REQUESTS"`
	ChallengeWindow      time.Duration `toml:"challenge_window" env:"CHALLENGE_WINDOW"`
	UnenrollMaxRequests  int           `toml:"unenroll_max_requests" env:"UNENROLL_MAX_REQUESTS"`
	UnenrollWindow       time.Duration `toml:"unenroll_window" env:"UNENROLL_WINDOW"`

	// ReleaseInterval is how often idle orchestrators are dropped.
	ReleaseInterval time.Duration `toml:"release_interval" env:"RELEASE_INTERVAL"`
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool `toml:"enabled" env:"ENABLED"`
	EnableLatencyHistograms bool `toml:"enable_latency_histograms" env:"ENABLE_LATENCY_HISTOGRAMS"`
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the configuration used for every unset field.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		RateLimit: RateLimitConfig{
			DefaultMaxRequests: 100,
			DefaultWindow:      60 * time.Minute,
			SweepInterval:      5 * time.Minute,
			RedisPrefix:        "gg:rl:",
			WarnInterval:       10 * time.Second,
		},
		Audit: AuditConfig{
			BufferSize:    1024,
			PurgeSchedule: "@hourly",
			WarnInterval:  10 * time.Second,
		},
		MFA: MFAConfig{
			Issuer:               "goGuard",
			FriendlyName:         "Authenticator App",
			VerifyMaxRequests:    5,
			VerifyWindow:         time.Minute,
			ChallengeMaxRequests: 5,
			ChallengeWindow:      time.Minute,
			UnenrollMaxRequests:  3,
			UnenrollWindow:       time.Minute,
			ReleaseInterval:      15 * time.Minute,
		},
	}
}

// withDefaults fills every zero field of cfg from DefaultConfig.
func withDefaults(cfg Config) (Config, error) {
	if err := mergo.Merge(&cfg, defaultConfig()); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects negative quotas and malformed schedules. It expects defaults to
// have been applied already.
func (c *Config) Validate() error {
	// Rate limit
	if c.RateLimit.DefaultMaxRequests <= 0 {
		return errors.New("RateLimit DefaultMaxRequests must be > 0")
	}
	if c.RateLimit.DefaultWindow <= 0 {
		return errors.New("RateLimit DefaultWindow must be > 0")
	}
	if c.RateLimit.SweepInterval < 0 {
		return errors.New("RateLimit SweepInterval must be >= 0")
	}
	if c.RateLimit.WarnInterval < 0 {
		return errors.New("RateLimit WarnInterval must be >= 0")
	}

	// Audit
	if c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}
	if c.Audit.Retention < 0 {
		return errors.New("Audit Retention must be >= 0")
	}
	if c.Audit.WarnInterval < 0 {
		return errors.New("Audit WarnInterval must be >= 0")
	}
	if c.Audit.Retention > 0 {
		if _, err := cron.ParseStandard(c.Audit.PurgeSchedule); err != nil {
			return errors.New("Audit PurgeSchedule is not a valid cron spec")
		}
	}

	// MFA
	if c.MFA.Issuer == "" {
		return errors.New("MFA Issuer must not be empty")
	}
	if c.MFA.VerifyMaxRequests <= 0 || c.MFA.ChallengeMaxRequests <= 0 || c.MFA.UnenrollMaxRequests <= 0 {
		return errors.New("MFA max requests must be > 0")
	}
	if c.MFA.VerifyWindow <= 0 || c.MFA.ChallengeWindow <= 0 || c.MFA.UnenrollWindow <= 0 {
		return errors.New("MFA windows must be > 0")
	}
	if c.MFA.ReleaseInterval < 0 {
		return errors.New("MFA ReleaseInterval must be >= 0")
	}

	return nil
}
