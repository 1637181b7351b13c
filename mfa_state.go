package goGuard

import "time"

// EnrollmentPhase is the state of the factor enrollment machine.
//
//	Idle -> Starting -> Pending -> Verifying -> Idle      (verified)
//	                               Verifying -> Pending   (failed, retry allowed)
//	                    Pending -> Idle                   (cancelled)
type EnrollmentPhase uint8

const (
	EnrollmentIdle EnrollmentPhase = iota
	EnrollmentStarting
	EnrollmentPending
	EnrollmentVerifying
)

func (p EnrollmentPhase) String() string {
	switch p {
	case EnrollmentIdle:
		return "idle"
	case EnrollmentStarting:
		return "enrolling"
	case EnrollmentPending:
		return "pending_verification"
	case EnrollmentVerifying:
		return "verifying_enrollment"
	default:
		return "unknown"
	}
}

// StepUpPhase is the state of the login step-up machine.
type StepUpPhase uint8

const (
	StepUpUnchallenged StepUpPhase = iota
	StepUpChallenged
)

func (p StepUpPhase) String() string {
	if p == StepUpChallenged {
		return "challenged"
	}
	return "unchallenged"
}

// StepUpOutcome is the result of the most recent step-up attempt.
type StepUpOutcome uint8

const (
	StepUpNone StepUpOutcome = iota
	StepUpVerified
	StepUpFailed
)

func (o StepUpOutcome) String() string {
	switch o {
	case StepUpVerified:
		return "verified"
	case StepUpFailed:
		return "failed"
	default:
		return "none"
	}
}

// UnenrollPhase is the state of the factor removal machine.
type UnenrollPhase uint8

const (
	UnenrollStable UnenrollPhase = iota
	UnenrollInProgress
)

// MFAState is an immutable snapshot of one principal's MFA status.
type MFAState struct {
	PrincipalID string
	// Factors holds TOTP factors only.
	Factors      []Factor
	CurrentLevel AssuranceLevel
	NextLevel    AssuranceLevel
	// Enrollment is set while a created factor awaits its first code.
	Enrollment *Enrollment

	EnrollmentPhase EnrollmentPhase
	StepUpPhase     StepUpPhase
	LastStepUp      StepUpOutcome
	UnenrollPhase   UnenrollPhase

	// RefreshedAt is zero until the first successful Refresh.
	RefreshedAt time.Time
}

// VerifiedFactors returns the factors with status verified.
func (s MFAState) VerifiedFactors() []Factor {
	out := make([]Factor, 0, len(s.Factors))
	for _, f := range s.Factors {
		if f.Status == FactorVerified {
			out = append(out, f)
		}
	}
	return out
}

// HasMFAEnabled reports whether at least one factor is verified.
func (s MFAState) HasMFAEnabled() bool {
	for _, f := range s.Factors {
		if f.Status == FactorVerified {
			return true
		}
	}
	return false
}

// NeedsMFAVerification reports whether the session must step up: the principal has a
// verified factor but the session is still aal1 and can reach aal2.
func (s MFAState) NeedsMFAVerification() bool {
	return s.CurrentLevel == AAL1 && s.NextLevel == AAL2 && s.HasMFAEnabled()
}

// Enrolling reports whether a factor is being created at the provider.
func (s MFAState) Enrolling() bool {
	return s.EnrollmentPhase == EnrollmentStarting
}

// Verifying reports whether an enrollment or step-up code is being checked.
func (s MFAState) Verifying() bool {
	return s.EnrollmentPhase == EnrollmentVerifying || s.StepUpPhase == StepUpChallenged
}

// Busy reports whether any MFA operation is in flight.
func (s MFAState) Busy() bool {
	return s.Enrolling() || s.Verifying() || s.UnenrollPhase == UnenrollInProgress
}
