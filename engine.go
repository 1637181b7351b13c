package goGuard

import (
	"sync"
	"time"

	"github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/internal/logger"
	"github.com/MrEthical07/goGuard/internal/rate"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Engine is the security control plane. It is safe for concurrent use once built
// through [Builder.Build]; call Close to stop background jobs and flush audit events.
type Engine struct {
	config Config

	limiter     *rate.Limiter
	memoryStore *rate.MemoryStore
	limitWarn   *logger.Throttle

	audit    *audit.Dispatcher[AuditEvent]
	purger   AuditPurger
	sinkWarn *logger.Throttle

	identity IdentityProvider
	mfaMu    sync.Mutex
	mfa      map[string]*MFAOrchestrator

	metrics *Metrics
	logger  *logger.Logger
	janitor *cron.Cron

	now   func() time.Time
	newID func() string
}

// Close stops the janitor and drains buffered audit events into the sink. It is safe
// to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.janitor != nil {
		<-e.janitor.Stop().Done()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports events lost to a full buffer, a cancelled context or a closed dispatcher.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditFailed reports events the sink rejected or panicked on.
func (e *Engine) AuditFailed() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Failed()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return defaultConfig()
	}
	return e.config
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func (e *Engine) clock() time.Time {
	if e == nil || e.now == nil {
		return time.Now()
	}
	return e.now()
}

func (e *Engine) eventID() string {
	if e == nil || e.newID == nil {
		return uuid.NewString()
	}
	return e.newID()
}

func (e *Engine) log() *logger.Logger {
	if e == nil || e.logger == nil {
		return logger.Nop()
	}
	return e.logger
}
