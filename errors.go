package goGuard

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuotaExceeded is matched by every rate-limit rejection ([RateLimitError]).
	ErrQuotaExceeded = errors.New("rate limit exceeded")
	// ErrNoPrincipal is returned when an operation needs an authenticated principal.
	ErrNoPrincipal = errors.New("no authenticated principal")
	// ErrInvalidSecureAction is returned for options without endpoint or with an unknown action.
	ErrInvalidSecureAction = errors.New("invalid secure action options")
	// ErrEngineNotReady is returned when a nil or unbuilt Engine is used.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrMFANoEnrollment is returned when verification or cancel runs without a pending enrollment.
	ErrMFANoEnrollment = errors.New("no MFA enrollment in progress")
	// ErrMFAEnrollmentInProgress is returned when a second enrollment is started.
	ErrMFAEnrollmentInProgress = errors.New("MFA enrollment already in progress")
	// ErrMFABusy is returned when a conflicting MFA operation is in flight.
	ErrMFABusy = errors.New("MFA operation already in progress")
	// ErrMFAEnrollmentFailed wraps identity provider failures while enrolling.
	ErrMFAEnrollmentFailed = errors.New("MFA enrollment failed")
	// ErrMFAVerificationFailed wraps identity provider failures while verifying a code.
	ErrMFAVerificationFailed = errors.New("MFA verification failed")
	// ErrMFAUnenrollFailed wraps identity provider failures while removing a factor.
	ErrMFAUnenrollFailed = errors.New("MFA unenroll failed")
	// ErrMFAFactorRequired is returned when no factor id is supplied.
	ErrMFAFactorRequired = errors.New("MFA factor id required")
	// ErrMFACodeRequired is returned when the verification code is empty.
	ErrMFACodeRequired = errors.New("MFA code required")
	// ErrMFARefreshFailed wraps failures while reloading factors and assurance levels.
	ErrMFARefreshFailed = errors.New("MFA status refresh failed")
)

// RateLimitError is the rejection returned when a secure action exceeds its quota.
type RateLimitError struct {
	Endpoint   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Endpoint, e.RetryAfter.Round(time.Second))
	}
	return "rate limit exceeded for " + e.Endpoint
}

func (e *RateLimitError) Unwrap() error {
	return ErrQuotaExceeded
}

// IsQuotaExceeded reports whether err is a rate-limit rejection.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// UserMessage maps err to a message suitable for end users. Quota rejections and
// verification failures get distinct messages since they ask for different actions.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuotaExceeded):
		return "Too many requests. Please wait a moment before trying again."
	case errors.Is(err, ErrMFACodeRequired):
		return "Enter the code from your authenticator app."
	case errors.Is(err, ErrMFAVerificationFailed):
		return "Invalid code. Please try again."
	case errors.Is(err, ErrMFAEnrollmentInProgress):
		return "An MFA setup is already in progress."
	case errors.Is(err, ErrMFANoEnrollment):
		return "Start MFA setup before verifying a code."
	case errors.Is(err, ErrMFABusy):
		return "Another MFA request is still running."
	case errors.Is(err, ErrMFAEnrollmentFailed):
		return "Could not start MFA setup. Please try again."
	case errors.Is(err, ErrMFAUnenrollFailed):
		return "Could not remove the authenticator. Please try again."
	case errors.Is(err, ErrNoPrincipal):
		return "Please sign in again."
	default:
		return "Something went wrong. Please try again."
	}
}
