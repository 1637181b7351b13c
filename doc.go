// Package goGuard provides the security control plane for sensitive user operations:
// a fixed-window rate limiter, a sanitizing audit logger, a secure-action executor that
// wraps arbitrary operations with both, and an MFA orchestrator for TOTP enrollment,
// step-up verification and unenrollment.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goGuard is the public surface. It exposes [Engine], [Builder], [Config], [Execute],
// [MFAOrchestrator] and value types (AuditEvent, MFAState, MetricsSnapshot, etc.). Counter
// stores, audit dispatch and flow sequencing live under internal/ and are never exported.
//
// # Trust boundary
//
// With the default in-process store, quotas are advisory: they reset on restart and are
// not shared between instances. Real enforcement requires a shared store (Redis via
// [Builder.WithRedis]) and a durable audit sink (sinks/sqlaudit).
//
// # What this package must NOT do
//
//   - Let an audit or rate-limit store failure change the outcome of a business operation.
//   - Alter, wrap or swallow errors returned by a wrapped operation.
//   - Import any sub-package that re-imports goGuard (no import cycles).
package goGuard
