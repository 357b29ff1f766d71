package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"identity-hub/internal/domain"
)

// SignIn authenticates a user against the provider behind the sign-in
// rate-limit gate.
type SignIn struct {
	accessor   *SessionAccessor
	limiter    domain.AttemptLimiter
	invalidate func()
	logger     *slog.Logger
}

// NewSignIn creates a new SignIn usecase. invalidate drops the approval
// cache so a prior user's resolution cannot outlive the new sign-in.
func NewSignIn(accessor *SessionAccessor, limiter domain.AttemptLimiter, invalidate func(), logger *slog.Logger) *SignIn {
	return &SignIn{accessor: accessor, limiter: limiter, invalidate: invalidate, logger: logger}
}

// Execute signs the user in. A denied attempt returns a RateLimitError
// carrying the lockout expiry; a successful sign-in clears the counter.
func (uc *SignIn) Execute(ctx context.Context, email, password string) (*domain.Session, error) {
	identifier := strings.ToLower(strings.TrimSpace(email))

	allowed, err := uc.limiter.Allow(ctx, identifier)
	if err != nil {
		// A limiter outage must not lock everyone out of sign-in.
		uc.logger.ErrorContext(ctx, "attempt limiter unavailable, allowing sign-in", "error", err)
		allowed = true
	}
	if !allowed {
		if resetAt, ok := uc.limiter.ResetTime(ctx, identifier); ok {
			return nil, &domain.RateLimitError{ResetAt: time.Unix(resetAt, 0)}
		}
		return nil, domain.ErrRateLimited
	}

	session, err := uc.accessor.SignIn(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	uc.invalidate()
	if err := uc.limiter.Clear(ctx, identifier); err != nil {
		uc.logger.WarnContext(ctx, "failed to clear attempt counter", "error", err)
	}
	return session, nil
}

// ResendVerification forwards a verification-mail resend for an address that
// signed up but never confirmed.
func (uc *SignIn) ResendVerification(ctx context.Context, email string) error {
	return uc.accessor.ResendVerification(ctx, strings.ToLower(strings.TrimSpace(email)))
}
