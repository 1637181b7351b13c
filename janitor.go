package goGuard

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// startJanitor schedules the background maintenance jobs. It returns nil when there is
// nothing to schedule.
//
//   - Expired in-process rate-limit entries are swept every RateLimit.SweepInterval.
//   - Events older than Audit.Retention are purged on Audit.PurgeSchedule when the sink
//     implements AuditPurger.
//   - Idle MFA orchestrators are released every MFA.ReleaseInterval.
func (e *Engine) startJanitor() (*cron.Cron, error) {
	sweep := e.memoryStore != nil && e.config.RateLimit.SweepInterval > 0
	purge := e.purger != nil && e.config.Audit.Retention > 0
	release := e.identity != nil && e.config.MFA.ReleaseInterval > 0
	if !sweep && !purge && !release {
		return nil, nil
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if sweep {
		c.Schedule(cron.Every(e.config.RateLimit.SweepInterval), cron.FuncJob(func() {
			e.SweepRateLimits()
		}))
	}

	if release {
		c.Schedule(cron.Every(e.config.MFA.ReleaseInterval), cron.FuncJob(func() {
			if n := e.ReleaseIdleMFA(); n > 0 {
				e.log().Child("janitor").Debug().Int("released", n).Msg("idle mfa orchestrators released")
			}
		}))
	}

	if purge {
		if _, err := c.AddFunc(e.config.Audit.PurgeSchedule, func() {
			_, _ = e.PurgeAudit(context.Background())
		}); err != nil {
			return nil, fmt.Errorf("schedule audit purge: %w", err)
		}
	}

	c.Start()
	return c, nil
}

// SweepRateLimits drops expired entries from the in-process store and returns how
// many were removed. It is a no-op for shared stores, which expire keys themselves.
func (e *Engine) SweepRateLimits() int {
	if e == nil || e.memoryStore == nil {
		return 0
	}
	removed := e.memoryStore.Sweep(e.clock())
	if removed > 0 {
		e.log().Child("janitor").Debug().Int("removed", removed).Msg("rate limit entries swept")
	}
	return removed
}

// PurgeAudit removes events older than Audit.Retention from a purging sink.
func (e *Engine) PurgeAudit(ctx context.Context) (int64, error) {
	if e == nil || e.purger == nil || e.config.Audit.Retention <= 0 {
		return 0, nil
	}

	before := e.clock().Add(-e.config.Audit.Retention)
	n, err := e.purger.Purge(ctx, before)
	if err != nil {
		e.log().Child("janitor").Warn().Err(err).Time("before", before).Msg("audit retention purge failed")
		return n, err
	}
	if n > 0 {
		e.log().Child("janitor").Info().Int64("purged", n).Time("before", before.UTC().Truncate(time.Second)).Msg("audit retention purge")
	}
	return n, nil
}
