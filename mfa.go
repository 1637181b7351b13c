package goGuard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/goGuard/internal/flows"
)

//go:generate mockgen -source=mfa.go -destination=internal/mock/identity_provider_mock.go -package=mock

// EnrollRequest describes the factor to create.
type EnrollRequest struct {
	FactorType   string
	FriendlyName string
	Issuer       string
}

// IdentityProvider is the backend that stores factors, checks TOTP codes and computes
// session assurance. Every call is scoped to one principal.
type IdentityProvider interface {
	EnrollFactor(ctx context.Context, principalID string, req EnrollRequest) (Enrollment, error)
	ListFactors(ctx context.Context, principalID string) ([]Factor, error)
	AssuranceLevel(ctx context.Context, principalID string) (current, next AssuranceLevel, err error)
	CreateChallenge(ctx context.Context, principalID, factorID string) (Challenge, error)
	VerifyChallenge(ctx context.Context, principalID, factorID, challengeID, code string) error
	UnenrollFactor(ctx context.Context, principalID, factorID string) error
}

// MFAOrchestrator owns the enrollment, step-up and unenroll state machines of one
// principal. Phase guards only protect this process; the identity provider remains the
// source of truth across instances.
type MFAOrchestrator struct {
	engine    *Engine
	provider  IdentityProvider
	principal Principal

	mu             sync.Mutex
	factors        []Factor
	current        AssuranceLevel
	next           AssuranceLevel
	enrollment     *Enrollment
	enrollPhase    EnrollmentPhase
	stepUpPhase    StepUpPhase
	lastStepUp     StepUpOutcome
	unenrollPhase  UnenrollPhase
	refreshedAt    time.Time
	refreshSeq     uint64
	refreshApplied uint64
	released       bool
}

var errMFAReleased = fmt.Errorf("%w: mfa orchestrator released", ErrEngineNotReady)

// MFA returns the live orchestrator of the context principal, creating it on first use.
func (e *Engine) MFA(ctx context.Context) (*MFAOrchestrator, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.identity == nil {
		return nil, fmt.Errorf("%w: identity provider not configured", ErrEngineNotReady)
	}
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrNoPrincipal
	}

	e.mfaMu.Lock()
	defer e.mfaMu.Unlock()

	if o, ok := e.mfa[p.ID]; ok {
		return o, nil
	}
	o := &MFAOrchestrator{
		engine:    e,
		provider:  e.identity,
		principal: p,
	}
	e.mfa[p.ID] = o
	return o, nil
}

// ReleaseMFA forgets the orchestrator of principalID unless an operation is in flight
// or an enrollment is pending. It reports whether the orchestrator was released.
func (e *Engine) ReleaseMFA(principalID string) bool {
	if e == nil {
		return false
	}
	e.mfaMu.Lock()
	defer e.mfaMu.Unlock()

	o, ok := e.mfa[principalID]
	if !ok {
		return false
	}
	if !o.retire() {
		return false
	}
	delete(e.mfa, principalID)
	return true
}

// ReleaseIdleMFA releases every orchestrator with no operation in flight and no
// pending enrollment. It returns how many were released.
func (e *Engine) ReleaseIdleMFA() int {
	if e == nil {
		return 0
	}
	e.mfaMu.Lock()
	defer e.mfaMu.Unlock()

	n := 0
	for id, o := range e.mfa {
		if o.retire() {
			delete(e.mfa, id)
			n++
		}
	}
	return n
}

// retire marks the orchestrator released when it is idle. A released orchestrator
// rejects every operation, so a caller still holding it cannot race the one that
// Engine.MFA creates next.
func (o *MFAOrchestrator) retire() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.busyLocked() || o.enrollPhase != EnrollmentIdle {
		return false
	}
	o.released = true
	return true
}

func (o *MFAOrchestrator) Principal() Principal {
	return o.principal
}

// State returns a snapshot. Derived flags are computed from it on every call.
func (o *MFAOrchestrator) State() MFAState {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := MFAState{
		PrincipalID:     o.principal.ID,
		Factors:         append([]Factor(nil), o.factors...),
		CurrentLevel:    o.current,
		NextLevel:       o.next,
		EnrollmentPhase: o.enrollPhase,
		StepUpPhase:     o.stepUpPhase,
		LastStepUp:      o.lastStepUp,
		UnenrollPhase:   o.unenrollPhase,
		RefreshedAt:     o.refreshedAt,
	}
	if o.enrollment != nil {
		en := *o.enrollment
		s.Enrollment = &en
	}
	return s
}

// Refresh reloads TOTP factors and assurance levels from the provider, concurrently.
// On failure the previous state is kept. A slower, older refresh never overwrites the
// result of a newer one.
func (o *MFAOrchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		return errMFAReleased
	}
	o.refreshSeq++
	seq := o.refreshSeq
	o.mu.Unlock()

	res, err := flows.RunMFARefresh(ctx, o.principal.ID, flows.MFARefreshDeps[Factor, AssuranceLevel]{
		ListFactors:    o.provider.ListFactors,
		AssuranceLevel: o.provider.AssuranceLevel,
		Keep: func(f Factor) bool {
			return f.Type == FactorTypeTOTP
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMFARefreshFailed, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if seq < o.refreshApplied {
		return nil
	}
	o.refreshApplied = seq
	o.factors = res.Factors
	o.current = res.Current
	o.next = res.Next
	o.refreshedAt = o.engine.clock()
	return nil
}

// StartEnrollment creates a TOTP factor and keeps its secret and QR payload until the
// first code is verified. Only one enrollment may be pending at a time.
func (o *MFAOrchestrator) StartEnrollment(ctx context.Context) (Enrollment, error) {
	o.mu.Lock()
	switch {
	case o.released:
		o.mu.Unlock()
		return Enrollment{}, errMFAReleased
	case o.unenrollPhase == UnenrollInProgress:
		o.mu.Unlock()
		return Enrollment{}, ErrMFABusy
	case o.enrollPhase == EnrollmentPending:
		o.mu.Unlock()
		return Enrollment{}, ErrMFAEnrollmentInProgress
	case o.enrollPhase != EnrollmentIdle:
		o.mu.Unlock()
		return Enrollment{}, ErrMFABusy
	}
	o.enrollPhase = EnrollmentStarting
	o.mu.Unlock()

	cfg := o.engine.config.MFA
	en, err := o.provider.EnrollFactor(ctx, o.principal.ID, EnrollRequest{
		FactorType:   FactorTypeTOTP,
		FriendlyName: cfg.FriendlyName,
		Issuer:       cfg.Issuer,
	})
	if err == nil && en.FactorID == "" {
		err = errors.New("provider returned no factor id")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.enrollPhase = EnrollmentIdle
		o.engine.metricInc(MetricMFAEnrollFailed)
		return Enrollment{}, fmt.Errorf("%w: %w", ErrMFAEnrollmentFailed, err)
	}

	o.enrollment = &en
	o.enrollPhase = EnrollmentPending
	o.engine.metricInc(MetricMFAEnrollStarted)
	return en, nil
}

// VerifyEnrollment checks the first code of the pending factor. On failure the
// enrollment is kept so the user can retry; on success it is cleared and the state is
// refreshed.
func (o *MFAOrchestrator) VerifyEnrollment(ctx context.Context, code string) error {
	o.mu.Lock()
	if err := o.enrollGuardLocked(); err != nil {
		o.mu.Unlock()
		if errors.Is(err, errMFANothingPending) {
			return ErrMFANoEnrollment
		}
		return err
	}
	factorID := o.enrollment.FactorID
	o.enrollPhase = EnrollmentVerifying
	o.mu.Unlock()

	cfg := o.engine.config.MFA
	err := o.engine.Run(o.scoped(ctx), SecureActionOptions{
		Endpoint:    "mfa/verify-enrollment",
		Action:      ActionMFAEnable,
		Resource:    "mfa",
		MaxRequests: cfg.VerifyMaxRequests,
		Window:      cfg.VerifyWindow,
	}, func(ctx context.Context) error {
		return flows.RunMFAChallengeVerify(ctx, o.principal.ID, factorID, code, o.challengeDeps())
	}, Metadata{"factorId": factorID})

	o.mu.Lock()
	if err != nil {
		// The pending factor may have been removed while the check was in flight.
		if o.enrollment != nil && o.enrollment.FactorID == factorID {
			o.enrollPhase = EnrollmentPending
		} else {
			o.enrollment = nil
			o.enrollPhase = EnrollmentIdle
		}
		o.mu.Unlock()
		o.engine.metricInc(MetricMFAEnrollFailed)
		return err
	}
	o.enrollment = nil
	o.enrollPhase = EnrollmentIdle
	o.mu.Unlock()
	o.engine.metricInc(MetricMFAEnrollVerified)

	if rerr := o.Refresh(ctx); rerr != nil {
		o.markVerified(factorID)
		o.engine.log().Child("mfa").Warn().Err(rerr).Str("principal_id", o.principal.ID).Msg("mfa refresh after enrollment failed")
	}
	return nil
}

// ChallengeAndVerify performs a login step-up with factorID. Success refreshes the
// assurance levels; failure leaves factors, levels and enrollment untouched.
func (o *MFAOrchestrator) ChallengeAndVerify(ctx context.Context, factorID, code string) error {
	o.mu.Lock()
	switch {
	case o.released:
		o.mu.Unlock()
		return errMFAReleased
	case o.stepUpPhase == StepUpChallenged, o.unenrollPhase == UnenrollInProgress:
		o.mu.Unlock()
		return ErrMFABusy
	}
	o.stepUpPhase = StepUpChallenged
	o.mu.Unlock()

	cfg := o.engine.config.MFA
	err := o.engine.Run(o.scoped(ctx), SecureActionOptions{
		Endpoint:    "mfa/challenge-verify",
		Action:      ActionMFAVerify,
		Resource:    "mfa",
		MaxRequests: cfg.ChallengeMaxRequests,
		Window:      cfg.ChallengeWindow,
	}, func(ctx context.Context) error {
		return flows.RunMFAChallengeVerify(ctx, o.principal.ID, factorID, code, o.challengeDeps())
	}, Metadata{"factorId": factorID})

	o.mu.Lock()
	o.stepUpPhase = StepUpUnchallenged
	switch {
	case err == nil:
		o.lastStepUp = StepUpVerified
	case !IsQuotaExceeded(err):
		o.lastStepUp = StepUpFailed
	}
	o.mu.Unlock()

	if err != nil {
		o.engine.metricInc(MetricMFAVerifyFailure)
		return err
	}
	o.engine.metricInc(MetricMFAVerifySuccess)

	if rerr := o.Refresh(ctx); rerr != nil {
		o.engine.log().Child("mfa").Warn().Err(rerr).Str("principal_id", o.principal.ID).Msg("mfa refresh after step-up failed")
	}
	return nil
}

// UnenrollFactor removes factorID at the provider and refreshes the state. Removing the
// pending factor also ends its enrollment.
func (o *MFAOrchestrator) UnenrollFactor(ctx context.Context, factorID string) error {
	if factorID == "" {
		return ErrMFAFactorRequired
	}

	o.mu.Lock()
	switch {
	case o.released:
		o.mu.Unlock()
		return errMFAReleased
	case o.busyLocked():
		o.mu.Unlock()
		return ErrMFABusy
	}
	o.unenrollPhase = UnenrollInProgress
	o.mu.Unlock()

	cfg := o.engine.config.MFA
	err := o.engine.Run(o.scoped(ctx), SecureActionOptions{
		Endpoint:    "mfa/unenroll",
		Action:      ActionMFADisable,
		Resource:    "mfa",
		MaxRequests: cfg.UnenrollMaxRequests,
		Window:      cfg.UnenrollWindow,
	}, func(ctx context.Context) error {
		if err := o.provider.UnenrollFactor(ctx, o.principal.ID, factorID); err != nil {
			return fmt.Errorf("%w: %w", ErrMFAUnenrollFailed, err)
		}
		return nil
	}, Metadata{"factorId": factorID})

	o.mu.Lock()
	o.unenrollPhase = UnenrollStable
	if err == nil {
		if o.enrollment != nil && o.enrollment.FactorID == factorID {
			o.enrollment = nil
			o.enrollPhase = EnrollmentIdle
		}
		o.removeFactorLocked(factorID)
	}
	o.mu.Unlock()

	if err != nil {
		return err
	}
	o.engine.metricInc(MetricMFAUnenroll)

	if rerr := o.Refresh(ctx); rerr != nil {
		o.engine.log().Child("mfa").Warn().Err(rerr).Str("principal_id", o.principal.ID).Msg("mfa refresh after unenroll failed")
	}
	return nil
}

// CancelEnrollment abandons the pending enrollment. Removing the half-created factor
// at the provider is best effort; its failure is logged and ignored. Without a pending
// enrollment it does nothing.
func (o *MFAOrchestrator) CancelEnrollment(ctx context.Context) error {
	o.mu.Lock()
	if err := o.enrollGuardLocked(); err != nil {
		o.mu.Unlock()
		if errors.Is(err, errMFANothingPending) {
			return nil
		}
		return err
	}
	factorID := o.enrollment.FactorID
	o.enrollment = nil
	o.enrollPhase = EnrollmentIdle
	o.removeFactorLocked(factorID)
	o.mu.Unlock()

	if err := o.provider.UnenrollFactor(ctx, o.principal.ID, factorID); err != nil {
		o.engine.log().Child("mfa").Debug().Err(err).Str("factor_id", factorID).Msg("mfa enrollment cleanup failed")
	}
	o.engine.metricInc(MetricMFAEnrollCancelled)
	return nil
}

func (o *MFAOrchestrator) scoped(ctx context.Context) context.Context {
	return WithPrincipal(ctx, o.principal)
}

func (o *MFAOrchestrator) challengeDeps() flows.MFAChallengeDeps {
	return flows.MFAChallengeDeps{
		CreateChallenge: func(ctx context.Context, principalID, factorID string) (string, error) {
			c, err := o.provider.CreateChallenge(ctx, principalID, factorID)
			if err != nil {
				return "", err
			}
			return c.ID, nil
		},
		VerifyChallenge: o.provider.VerifyChallenge,
		Errors: flows.MFAChallengeErrors{
			FactorRequired:     ErrMFAFactorRequired,
			CodeRequired:       ErrMFACodeRequired,
			VerificationFailed: ErrMFAVerificationFailed,
		},
	}
}

var errMFANothingPending = errors.New("no pending enrollment")

// enrollGuardLocked reports whether the pending enrollment may be verified or
// cancelled now. It returns errMFANothingPending when there is none.
func (o *MFAOrchestrator) enrollGuardLocked() error {
	switch {
	case o.released:
		return errMFAReleased
	case o.enrollPhase == EnrollmentIdle:
		return errMFANothingPending
	case o.unenrollPhase == UnenrollInProgress:
		return ErrMFABusy
	case o.enrollPhase != EnrollmentPending, o.enrollment == nil:
		return ErrMFABusy
	}
	return nil
}

func (o *MFAOrchestrator) busyLocked() bool {
	return o.enrollPhase == EnrollmentStarting ||
		o.enrollPhase == EnrollmentVerifying ||
		o.stepUpPhase == StepUpChallenged ||
		o.unenrollPhase == UnenrollInProgress
}

func (o *MFAOrchestrator) removeFactorLocked(factorID string) {
	kept := o.factors[:0:0]
	for _, f := range o.factors {
		if f.ID != factorID {
			kept = append(kept, f)
		}
	}
	o.factors = kept
}

// markVerified records a factor as verified locally when the provider could not be
// re-read after a successful enrollment.
func (o *MFAOrchestrator) markVerified(factorID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.factors {
		if o.factors[i].ID == factorID {
			o.factors[i].Status = FactorVerified
			return
		}
	}
	o.factors = append(o.factors, Factor{
		ID:           factorID,
		FriendlyName: o.engine.config.MFA.FriendlyName,
		Type:         FactorTypeTOTP,
		Status:       FactorVerified,
	})
}
