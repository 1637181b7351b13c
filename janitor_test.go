package goGuard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSweepRateLimitsDropsExpiredEntries(t *testing.T) {
	clock := newTestClock()
	e := newTestEngine(t, testEngineOptions{clock: clock})

	e.Allow(principalCtx("u1"), "a", 5, time.Minute)
	e.Allow(principalCtx("u2"), "a", 5, time.Hour)

	if n := e.SweepRateLimits(); n != 0 {
		t.Fatalf("nothing expired yet, removed %d", n)
	}
	clock.Advance(2 * time.Minute)
	if n := e.SweepRateLimits(); n != 1 {
		t.Fatalf("expected 1 expired entry removed, got %d", n)
	}
}

func TestSweepRateLimitsNoopForSharedStore(t *testing.T) {
	_, rdb := newTestRedis(t)
	e, err := New().WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	if e.SweepRateLimits() != 0 {
		t.Fatal("shared stores expire keys themselves")
	}
}

func TestPurgeAuditUsesRetention(t *testing.T) {
	clock := newTestClock()
	cfg := DefaultConfig()
	cfg.Audit.Retention = 24 * time.Hour
	sink := &purgingSink{n: 3}
	e := newTestEngine(t, testEngineOptions{clock: clock, config: &cfg, sink: sink})

	n, err := e.PurgeAudit(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("unexpected purge result n=%d err=%v", n, err)
	}
	if want := clock.Now().Add(-24 * time.Hour); !sink.before.Equal(want) {
		t.Fatalf("purge cutoff %v, want %v", sink.before, want)
	}
}

func TestPurgeAuditDisabledWithoutRetention(t *testing.T) {
	sink := &purgingSink{n: 3}
	e := newTestEngine(t, testEngineOptions{sink: sink})

	n, err := e.PurgeAudit(context.Background())
	if err != nil || n != 0 || !sink.before.IsZero() {
		t.Fatal("purge must not run without retention")
	}
}

type failingPurger struct {
	captureSink
}

func (*failingPurger) Purge(context.Context, time.Time) (int64, error) {
	return 0, errors.New("table locked")
}

func TestPurgeAuditReportsError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Retention = time.Hour
	e := newTestEngine(t, testEngineOptions{config: &cfg, sink: &failingPurger{}})

	if _, err := e.PurgeAudit(context.Background()); err == nil {
		t.Fatal("expected purge error")
	}
}

func TestJanitorScheduling(t *testing.T) {
	e := newTestEngine(t, testEngineOptions{})
	if e.janitor == nil || len(e.janitor.Entries()) != 1 {
		t.Fatal("memory store should schedule one sweep job")
	}

	cfg := DefaultConfig()
	cfg.RateLimit.SweepInterval = 0
	quiet := newTestEngine(t, testEngineOptions{config: &cfg, store: &failingStore{}})
	if quiet.janitor != nil {
		t.Fatal("no janitor expected without jobs")
	}

	cfg = DefaultConfig()
	cfg.Audit.Retention = time.Hour
	both := newTestEngine(t, testEngineOptions{config: &cfg, sink: &purgingSink{}})
	if both.janitor == nil || len(both.janitor.Entries()) != 2 {
		t.Fatal("sweep and purge should both be scheduled")
	}
}

func TestJanitorSchedulesMFARelease(t *testing.T) {
	e := newTestEngine(t, testEngineOptions{provider: newFakeProvider()})
	if e.janitor == nil || len(e.janitor.Entries()) != 2 {
		t.Fatal("sweep and mfa release should both be scheduled")
	}

	shared := newTestEngine(t, testEngineOptions{store: &failingStore{}, provider: newFakeProvider()})
	if shared.janitor == nil || len(shared.janitor.Entries()) != 1 {
		t.Fatal("mfa release should be scheduled without an in-process store")
	}
}
