package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"identity-hub/internal/domain"
)

// RetryPolicy is the bounded-wait discipline applied to provider calls: each
// attempt gets Budget, and the get-current-user path gets one extra attempt
// at RetryBudget before degrading to "no user".
type RetryPolicy struct {
	Budget      time.Duration
	RetryBudget time.Duration
}

// bounded races fn against a timer. If the timer fires first the call counts
// as failed-by-timeout; a late result is discarded.
func bounded[T any](ctx context.Context, budget time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := fn(callCtx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case <-callCtx.Done():
		var zero T
		return zero, fmt.Errorf("%w: no answer within %s", domain.ErrTimeout, budget)
	case out := <-done:
		return out.value, out.err
	}
}

// SessionAccessor wraps every provider and profile-store call in a bounded
// wait so no identity check can block the caller past its budget. A provider
// verdict of an unrecoverable refresh token triggers the local sign-out
// side effect.
type SessionAccessor struct {
	provider domain.IdentityProvider
	profiles domain.ProfileStore
	policy   RetryPolicy
	logger   *slog.Logger

	// onAuthFailure clears locally cached session state; wired by the hub.
	onAuthFailure func(context.Context)
}

// NewSessionAccessor creates a session accessor. profiles may be nil when no
// profile store is configured.
func NewSessionAccessor(provider domain.IdentityProvider, profiles domain.ProfileStore, policy RetryPolicy, logger *slog.Logger) *SessionAccessor {
	return &SessionAccessor{
		provider:      provider,
		profiles:      profiles,
		policy:        policy,
		logger:        logger,
		onAuthFailure: func(context.Context) {},
	}
}

// OnAuthFailure registers the local sign-out side effect invoked when the
// provider reports an unrecoverable refresh token.
func (a *SessionAccessor) OnAuthFailure(fn func(context.Context)) {
	a.onAuthFailure = fn
}

// Session returns the provider's current session within the budget.
func (a *SessionAccessor) Session(ctx context.Context) (*domain.Session, error) {
	return bounded(ctx, a.policy.Budget, a.provider.GetSession)
}

// CurrentUser returns the provider's current user. The read path never
// propagates an error: a timeout retries once at the shorter budget, and any
// remaining failure degrades to (nil, nil) — a false "signed out" is
// preferred over a blocked caller.
func (a *SessionAccessor) CurrentUser(ctx context.Context) (*domain.ProviderUser, error) {
	user, err := bounded(ctx, a.policy.Budget, a.provider.GetUser)
	if errors.Is(err, domain.ErrTimeout) {
		a.logger.WarnContext(ctx, "get-user timed out, retrying once", "retry_budget", a.policy.RetryBudget)
		user, err = bounded(ctx, a.policy.RetryBudget, a.provider.GetUser)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoSession):
		case errors.Is(err, domain.ErrTokenExpired):
			a.logger.WarnContext(ctx, "refresh token unrecoverable, clearing local session")
			a.onAuthFailure(ctx)
		default:
			a.logger.WarnContext(ctx, "get-user failed, treating as signed out", "error", err)
		}
		return nil, nil
	}
	return user, nil
}

// SignIn performs a bounded credential sign-in. Write path: errors surface.
func (a *SessionAccessor) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return bounded(ctx, a.policy.Budget, func(ctx context.Context) (*domain.Session, error) {
		return a.provider.SignIn(ctx, email, password)
	})
}

// Refresh performs a bounded token refresh. An unrecoverable refresh token
// clears local session state before the error propagates.
func (a *SessionAccessor) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	session, err := bounded(ctx, a.policy.Budget, func(ctx context.Context) (*domain.Session, error) {
		return a.provider.RefreshSession(ctx, refreshToken)
	})
	if errors.Is(err, domain.ErrTokenExpired) {
		a.onAuthFailure(ctx)
	}
	return session, err
}

// SetSession performs a bounded provider-side session re-establishment.
func (a *SessionAccessor) SetSession(ctx context.Context, accessToken, refreshToken string) (*domain.Session, error) {
	return bounded(ctx, a.policy.Budget, func(ctx context.Context) (*domain.Session, error) {
		return a.provider.SetSession(ctx, accessToken, refreshToken)
	})
}

// SignOut performs a bounded provider sign-out.
func (a *SessionAccessor) SignOut(ctx context.Context) error {
	_, err := bounded(ctx, a.policy.Budget, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.provider.SignOut(ctx)
	})
	return err
}

// ResendVerification performs a bounded verification-mail resend.
func (a *SessionAccessor) ResendVerification(ctx context.Context, email string) error {
	_, err := bounded(ctx, a.policy.Budget, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.provider.ResendVerification(ctx, email)
	})
	return err
}

// Profile performs a bounded profile lookup with the same discipline.
func (a *SessionAccessor) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	if a.profiles == nil {
		return nil, domain.ErrProfileUnavailable
	}
	return bounded(ctx, a.policy.Budget, func(ctx context.Context) (*domain.Profile, error) {
		return a.profiles.GetProfile(ctx, userID)
	})
}
