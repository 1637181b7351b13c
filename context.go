package goGuard

import "context"

type principalContextKey struct{}

// WithPrincipal attaches the authenticated principal to ctx. Rate limiting, audit
// recording and MFA orchestration all read the principal from here; the Engine
// never creates principals itself.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal attached by [WithPrincipal]. The boolean
// is false when ctx carries no principal or one with an empty ID.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}

	p, _ := ctx.Value(principalContextKey{}).(Principal)
	if p.ID == "" {
		return Principal{}, false
	}

	return p, true
}
