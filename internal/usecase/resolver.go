package usecase

import (
	"context"
	"errors"
	"log/slog"

	"identity-hub/internal/domain"
)

// Resolver derives the application-facing identity from the provider's
// current user and the profile record. It is the single place role and
// approval logic exists.
type Resolver struct {
	accessor      *SessionAccessor
	isMasterAdmin func(email string) bool
	logger        *slog.Logger
}

// NewResolver creates a resolver. isMasterAdmin holds the configured
// bootstrap override set.
func NewResolver(accessor *SessionAccessor, isMasterAdmin func(email string) bool, logger *slog.Logger) *Resolver {
	return &Resolver{
		accessor:      accessor,
		isMasterAdmin: isMasterAdmin,
		logger:        logger,
	}
}

// Resolve returns the current identity, nil when signed out.
//
// A failed profile lookup does not abort: the identity degrades to
// provider-only data with role "user". The master-admin override applies
// regardless of the profile row so bootstrap access exists before any row
// does.
func (r *Resolver) Resolve(ctx context.Context) (*domain.Identity, error) {
	user, err := r.accessor.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	identity := &domain.Identity{
		ID:       user.ID,
		Email:    user.Email,
		Role:     domain.RoleUser,
		Approved: false,
	}

	profile, err := r.accessor.Profile(ctx, user.ID)
	switch {
	case err == nil:
		identity.Role = profile.Role
		identity.Approved = profile.Approved()
		identity.DisplayName = profile.DisplayName
	case errors.Is(err, domain.ErrProfileNotFound):
		r.logger.InfoContext(ctx, "no profile row, using provider-only identity", "user_id", user.ID)
	default:
		r.logger.WarnContext(ctx, "profile lookup failed, degrading to provider-only identity",
			"user_id", user.ID, "error", err)
	}

	if r.isMasterAdmin(user.Email) {
		identity.Role = domain.RoleAdmin
		identity.Approved = true
	}

	return identity, nil
}
