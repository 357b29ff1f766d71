package domain

import (
	"errors"
	"fmt"
	"time"
)

// Session and provider errors.
var (
	ErrNoSession           = errors.New("no active session")
	ErrTimeout             = errors.New("identity provider call timed out")
	ErrInvalidCredential   = errors.New("invalid email or password")
	ErrTokenExpired        = errors.New("refresh token invalid or expired")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrEmailNotVerified    = errors.New("email not verified")
)

// Profile store errors.
var (
	ErrProfileUnavailable = errors.New("profile store unavailable")
	ErrProfileNotFound    = errors.New("profile not found")
)

// Approval workflow errors. The refined variants wrap ErrPreconditionFailed
// so callers can match either the class or the specific outcome.
var (
	ErrPreconditionFailed = errors.New("approval state already transitioned")
	ErrAlreadyApproved    = fmt.Errorf("%w: already approved", ErrPreconditionFailed)
	ErrAlreadyRejected    = fmt.Errorf("%w: already rejected", ErrPreconditionFailed)
	ErrNotRejected        = fmt.Errorf("%w: not in rejected state", ErrPreconditionFailed)
)

// Token issuing errors.
var (
	ErrTokenGeneration   = errors.New("token generation failed")
	ErrCSRFSecretMissing = errors.New("CSRF secret not configured")
)

// ErrRateLimited is the class for sign-in attempt lockouts.
var ErrRateLimited = errors.New("too many sign-in attempts")

// RateLimitError carries the lockout expiry for user-facing messaging.
// It matches ErrRateLimited under errors.Is.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	minutes := int(time.Until(e.ResetAt).Minutes()) + 1
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("too many sign-in attempts, try again in %d minutes", minutes)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
