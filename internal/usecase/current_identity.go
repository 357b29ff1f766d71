package usecase

import (
	"context"

	"identity-hub/internal/domain"
	"identity-hub/internal/infrastructure/cache"
)

// CurrentIdentity answers every "who is the caller" question through the
// approval cache, so overlapping UI requests share one resolution.
type CurrentIdentity struct {
	cache *cache.ApprovalCache
}

// NewCurrentIdentity creates a new CurrentIdentity usecase.
func NewCurrentIdentity(c *cache.ApprovalCache) *CurrentIdentity {
	return &CurrentIdentity{cache: c}
}

// Execute returns the resolved identity, nil when signed out.
func (uc *CurrentIdentity) Execute(ctx context.Context) (*domain.Identity, error) {
	return uc.cache.Resolve(ctx)
}

// WithApproval returns the identity together with its approval flag.
func (uc *CurrentIdentity) WithApproval(ctx context.Context) (*domain.Identity, bool, error) {
	identity, err := uc.cache.Resolve(ctx)
	if err != nil {
		return nil, false, err
	}
	if identity == nil {
		return nil, false, nil
	}
	return identity, identity.Approved, nil
}

// IsApproved reports whether the current user is approved.
func (uc *CurrentIdentity) IsApproved(ctx context.Context) (bool, error) {
	_, approved, err := uc.WithApproval(ctx)
	return approved, err
}

// HasPermission reports whether the current user holds the permission.
func (uc *CurrentIdentity) HasPermission(ctx context.Context, p domain.Permission) (bool, error) {
	identity, err := uc.cache.Resolve(ctx)
	if err != nil {
		return false, err
	}
	return identity.HasPermission(p), nil
}
