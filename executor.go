package goGuard

import (
	"context"
	"fmt"
	"time"
)

// SecureActionOptions names the quota and audit labels of one sensitive operation.
// MaxRequests and Window fall back to Config.RateLimit defaults when not positive.
type SecureActionOptions struct {
	Endpoint    string
	Action      ActionKind
	Resource    string
	MaxRequests int
	Window      time.Duration
}

func (o SecureActionOptions) validate() error {
	if o.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidSecureAction)
	}
	if !o.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidSecureAction, o.Action)
	}
	return nil
}

// Preset options for the profile and export operations.
var (
	ProfileUpdateAction = SecureActionOptions{
		Endpoint:    "profile/update",
		Action:      ActionProfileUpdate,
		Resource:    "profile",
		MaxRequests: 10,
		Window:      time.Minute,
	}
	AvatarUploadAction = SecureActionOptions{
		Endpoint:    "profile/avatar",
		Action:      ActionProfileUpdate,
		Resource:    "avatar",
		MaxRequests: 5,
		Window:      time.Minute,
	}
	DataExportAction = SecureActionOptions{
		Endpoint:    "data/export",
		Action:      ActionExportData,
		Resource:    "data",
		MaxRequests: 5,
		Window:      time.Hour,
	}
)

// Execute runs op as a secure action:
//
//  1. the context principal is counted against opts.Endpoint; over quota returns a
//     [*RateLimitError] without calling op or recording anything;
//  2. op runs with ctx;
//  3. exactly one audit event is recorded with metadata plus "success" and, on
//     failure, "error";
//  4. op's result and error are returned unchanged.
func Execute[T any](ctx context.Context, e *Engine, opts SecureActionOptions, op func(context.Context) (T, error), metadata Metadata) (T, error) {
	var zero T
	if e == nil {
		return zero, ErrEngineNotReady
	}
	if op == nil {
		return zero, fmt.Errorf("%w: operation is nil", ErrInvalidSecureAction)
	}
	if err := opts.validate(); err != nil {
		return zero, err
	}

	d := e.allow(ctx, opts.Endpoint, opts.MaxRequests, opts.Window)
	if !d.Allowed {
		return zero, &RateLimitError{
			Endpoint:   opts.Endpoint,
			RetryAfter: d.RetryAfter(e.clock()),
		}
	}

	start := time.Now()
	result, err := op(ctx)
	e.metricObserve(MetricSecureActionLatency, time.Since(start))

	if err != nil {
		e.metricInc(MetricSecureActionFailure)
	} else {
		e.metricInc(MetricSecureActionSuccess)
	}

	if p, ok := PrincipalFromContext(ctx); ok {
		errText := ""
		if err != nil {
			errText = err.Error()
		}
		e.emitAudit(ctx, p, opts.Action, opts.Resource, err == nil, errText, outcomeMetadata(metadata, err))
	} else {
		e.metricInc(MetricAuditSkipped)
	}

	return result, err
}

// Run is Execute for operations without a result.
func (e *Engine) Run(ctx context.Context, opts SecureActionOptions, op func(context.Context) error, metadata Metadata) error {
	if op == nil {
		return fmt.Errorf("%w: operation is nil", ErrInvalidSecureAction)
	}
	_, err := Execute(ctx, e, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, metadata)
	return err
}
