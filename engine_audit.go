package goGuard

import (
	"context"

	"github.com/MrEthical07/goGuard/internal/audit"
)

// Record writes an audit event for the context principal. Metadata is sanitized
// before it leaves the caller. Success and Error are taken from the "success" and
// "error" metadata keys when present; success defaults to true.
//
// Record never fails: without a principal it is a no-op, and sink errors only reach
// the diagnostic logger.
func (e *Engine) Record(ctx context.Context, action ActionKind, resource string, metadata Metadata) {
	if e == nil {
		return
	}
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		e.metricInc(MetricAuditSkipped)
		return
	}

	success := true
	if v, ok := metadata["success"].(bool); ok {
		success = v
	}
	errText, _ := metadata["error"].(string)

	e.emitAudit(ctx, p, action, resource, success, errText, metadata)
}

func (e *Engine) emitAudit(ctx context.Context, p Principal, action ActionKind, resource string, success bool, errText string, metadata Metadata) {
	if e.audit == nil {
		return
	}

	event := AuditEvent{
		ID:          e.eventID(),
		Timestamp:   e.clock().UTC(),
		PrincipalID: p.ID,
		Action:      action,
		Resource:    resource,
		Success:     success,
		Error:       errText,
		Metadata:    audit.Sanitize(metadata),
	}

	e.audit.Emit(ctx, event)
	e.metricInc(MetricAuditRecorded)
}

func (e *Engine) onSinkError(event AuditEvent, err error) {
	e.metricInc(MetricAuditSinkFailure)
	e.sinkWarn.Do(func() {
		e.log().Child("audit").Warn().
			Err(err).
			Str("event_id", event.ID).
			Str("action", string(event.Action)).
			Msg("audit sink failure, event lost")
	})
}

// outcomeMetadata returns a copy of metadata with the success flag and, on failure,
// the error description added.
func outcomeMetadata(metadata Metadata, err error) Metadata {
	out := make(Metadata, len(metadata)+2)
	for k, v := range metadata {
		out[k] = v
	}
	out["success"] = err == nil
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}
