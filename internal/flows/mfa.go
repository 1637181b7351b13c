package flows

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

type MFAChallengeErrors struct {
	FactorRequired     error
	CodeRequired       error
	VerificationFailed error
}

type MFAChallengeDeps struct {
	CreateChallenge func(ctx context.Context, principalID, factorID string) (string, error)
	VerifyChallenge func(ctx context.Context, principalID, factorID, challengeID, code string) error

	Errors MFAChallengeErrors
}

// RunMFAChallengeVerify issues a fresh challenge for factorID and checks code against
// it. The two provider round-trips are not atomic; an orphaned challenge expires at
// the provider.
func RunMFAChallengeVerify(ctx context.Context, principalID, factorID, code string, deps MFAChallengeDeps) error {
	if factorID == "" {
		return deps.Errors.FactorRequired
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return deps.Errors.CodeRequired
	}

	challengeID, err := deps.CreateChallenge(ctx, principalID, factorID)
	if err != nil {
		return fmt.Errorf("%w: create challenge: %w", deps.Errors.VerificationFailed, err)
	}

	if err := deps.VerifyChallenge(ctx, principalID, factorID, challengeID, code); err != nil {
		return fmt.Errorf("%w: %w", deps.Errors.VerificationFailed, err)
	}

	return nil
}

type MFARefreshDeps[F any, L any] struct {
	ListFactors    func(ctx context.Context, principalID string) ([]F, error)
	AssuranceLevel func(ctx context.Context, principalID string) (L, L, error)

	// Keep filters the factor list; nil keeps everything.
	Keep func(F) bool
}

type MFARefreshResult[F any, L any] struct {
	Factors []F
	Current L
	Next    L
}

// RunMFARefresh fetches factors and assurance levels concurrently. Either both
// succeed or the error of the first failing call is returned.
func RunMFARefresh[F any, L any](ctx context.Context, principalID string, deps MFARefreshDeps[F, L]) (MFARefreshResult[F, L], error) {
	var (
		res     MFARefreshResult[F, L]
		factors []F
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := deps.ListFactors(gctx, principalID)
		if err != nil {
			return fmt.Errorf("list factors: %w", err)
		}
		factors = list
		return nil
	})
	g.Go(func() error {
		current, next, err := deps.AssuranceLevel(gctx, principalID)
		if err != nil {
			return fmt.Errorf("assurance level: %w", err)
		}
		res.Current, res.Next = current, next
		return nil
	})
	if err := g.Wait(); err != nil {
		return MFARefreshResult[F, L]{}, err
	}

	res.Factors = make([]F, 0, len(factors))
	for _, f := range factors {
		if deps.Keep == nil || deps.Keep(f) {
			res.Factors = append(res.Factors, f)
		}
	}

	return res, nil
}
