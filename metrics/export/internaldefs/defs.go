package internaldefs

import (
	goGuard "github.com/MrEthical07/goGuard"
)

type CounterDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goGuard.MetricRateLimitAllowed, Name: "goguard_rate_limit_allowed_total", Help: "Limiter checks that admitted the request, including fail-open."},
	{ID: goGuard.MetricRateLimitDenied, Name: "goguard_rate_limit_denied_total", Help: "Limiter checks that rejected the request."},
	{ID: goGuard.MetricRateLimitStoreFailure, Name: "goguard_rate_limit_store_failure_total", Help: "Limiter store errors answered by failing open."},
	{ID: goGuard.MetricAuditRecorded, Name: "goguard_audit_recorded_total", Help: "Audit events handed to the dispatcher."},
	{ID: goGuard.MetricAuditSkipped, Name: "goguard_audit_skipped_total", Help: "Audit records skipped for lack of a principal."},
	{ID: goGuard.MetricAuditSinkFailure, Name: "goguard_audit_sink_failure_total", Help: "Audit events the sink rejected."},
	{ID: goGuard.MetricSecureActionSuccess, Name: "goguard_secure_action_success_total", Help: "Secure actions whose operation succeeded."},
	{ID: goGuard.MetricSecureActionFailure, Name: "goguard_secure_action_failure_total", Help: "Secure actions whose operation failed."},
	{ID: goGuard.MetricMFAEnrollStarted, Name: "goguard_mfa_enroll_started_total", Help: "TOTP enrollments created."},
	{ID: goGuard.MetricMFAEnrollFailed, Name: "goguard_mfa_enroll_failed_total", Help: "Failed enrollment starts and verifications."},
	{ID: goGuard.MetricMFAEnrollVerified, Name: "goguard_mfa_enroll_verified_total", Help: "Enrollments completed with a valid code."},
	{ID: goGuard.MetricMFAEnrollCancelled, Name: "goguard_mfa_enroll_cancelled_total", Help: "Enrollments abandoned by the user."},
	{ID: goGuard.MetricMFAVerifySuccess, Name: "goguard_mfa_verify_success_total", Help: "Successful step-up verifications."},
	{ID: goGuard.MetricMFAVerifyFailure, Name: "goguard_mfa_verify_failure_total", Help: "Failed or rate-limited step-up verifications."},
	{ID: goGuard.MetricMFAUnenroll, Name: "goguard_mfa_unenroll_total", Help: "Factors removed."},
}

var HistogramDefs = []HistogramDef{
	{ID: goGuard.MetricSecureActionLatency, Name: "goguard_secure_action_latency_seconds", Help: "Latency of operations wrapped by the secure action executor."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names the bounds for instrument names that cannot contain dots.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

const (
	AuditDroppedName = "goguard_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped by dispatcher backpressure or cancellation."
	AuditFailedName  = "goguard_audit_failed_total"
	AuditFailedHelp  = "Audit events the sink failed or panicked on."
)

// NormalizeBuckets copies raw into a fixed array, padding missing buckets with zero.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into the running totals exporters expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
