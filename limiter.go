package goGuard

import (
	"context"
	"time"

	"github.com/MrEthical07/goGuard/internal/rate"
)

// Allow counts one request by the context principal against endpoint and reports
// whether it is within quota. Non-positive maxRequests or window fall back to the
// configured defaults. Windows are fixed: a burst straddling a reset can admit up to
// twice maxRequests.
//
// Without a principal Allow always returns true; unauthenticated calls are rejected
// upstream. A store failure also returns true (fail open) and is logged as a warning.
func (e *Engine) Allow(ctx context.Context, endpoint string, maxRequests int, window time.Duration) bool {
	return e.allow(ctx, endpoint, maxRequests, window).Allowed
}

func (e *Engine) allow(ctx context.Context, endpoint string, maxRequests int, window time.Duration) rate.Decision {
	p, ok := PrincipalFromContext(ctx)
	if !ok || e == nil || e.limiter == nil {
		return rate.Decision{Allowed: true}
	}

	d, err := e.limiter.Take(ctx, p.ID, endpoint, maxRequests, window)
	if err != nil {
		e.metricInc(MetricRateLimitStoreFailure)
		e.metricInc(MetricRateLimitAllowed)
		e.limitWarn.Do(func() {
			e.log().Child("limiter").Warn().
				Err(err).
				Str("principal_id", p.ID).
				Str("endpoint", endpoint).
				Msg("rate limit store failure, allowing request")
		})
		return rate.Decision{Allowed: true}
	}

	if d.Allowed {
		e.metricInc(MetricRateLimitAllowed)
	} else {
		e.metricInc(MetricRateLimitDenied)
	}
	return d
}
