package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
)

type fakeSource struct {
	snapshot goGuard.MetricsSnapshot
	dropped  uint64
	failed   uint64
}

func (f fakeSource) MetricsSnapshot() goGuard.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }
func (f fakeSource) AuditFailed() uint64                      { return f.failed }

func emptySnapshot() goGuard.MetricsSnapshot {
	return goGuard.MetricsSnapshot{
		Counters:   map[goGuard.MetricID]uint64{},
		Histograms: map[goGuard.MetricID][]uint64{},
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{snapshot: emptySnapshot()})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderAuditLossEvenWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{snapshot: emptySnapshot(), failed: 4})

	out := exp.Render()
	if !strings.Contains(out, "goguard_audit_failed_total 4") {
		t.Fatalf("expected audit failure counter, got:\n%s", out)
	}
	if strings.Contains(out, "histogram") {
		t.Fatalf("histogram must be omitted when not collected, got:\n%s", out)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{
				goGuard.MetricRateLimitDenied: 7,
			},
			Histograms: map[goGuard.MetricID][]uint64{
				goGuard.MetricSecureActionLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"goguard_rate_limit_denied_total 7",
		"goguard_mfa_verify_success_total 0",
		"goguard_secure_action_latency_seconds_bucket{le=\"0.005\"} 1",
		"goguard_secure_action_latency_seconds_bucket{le=\"+Inf\"} 36",
		"goguard_secure_action_latency_seconds_count 36",
		"goguard_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	e, err := goGuard.New().WithMetricsEnabled(true, false).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	ctx := goGuard.WithPrincipal(context.Background(), goGuard.Principal{ID: "u1"})
	e.Allow(ctx, "x", 1, time.Minute)
	e.Allow(ctx, "x", 1, time.Minute)

	rec := httptest.NewRecorder()
	New(e).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "goguard_rate_limit_allowed_total 1") || !strings.Contains(body, "goguard_rate_limit_denied_total 1") {
		t.Fatalf("engine counters missing:\n%s", body)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := New(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{
				goGuard.MetricRateLimitAllowed:    1000,
				goGuard.MetricRateLimitDenied:     40,
				goGuard.MetricAuditRecorded:       800,
				goGuard.MetricSecureActionSuccess: 790,
				goGuard.MetricSecureActionFailure: 10,
			},
			Histograms: map[goGuard.MetricID][]uint64{
				goGuard.MetricSecureActionLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
