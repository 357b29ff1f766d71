package usecase

import (
	"context"
	"log/slog"

	"identity-hub/internal/infrastructure/localstore"
)

// SignOut terminates the session locally and provider-side.
type SignOut struct {
	accessor   *SessionAccessor
	keeper     *localstore.Keeper
	invalidate func()
	logger     *slog.Logger
}

// NewSignOut creates a new SignOut usecase. keeper may be nil when no local
// persistence is configured.
func NewSignOut(accessor *SessionAccessor, keeper *localstore.Keeper, invalidate func(), logger *slog.Logger) *SignOut {
	return &SignOut{accessor: accessor, keeper: keeper, invalidate: invalidate, logger: logger}
}

// Execute signs out. The approval cache is invalidated before the provider
// round-trip so any resolution that completes afterwards observes the
// sign-out. Local state is always cleared, even when the provider call
// fails; the session is gone from this host's point of view either way.
func (uc *SignOut) Execute(ctx context.Context) error {
	uc.invalidate()

	if uc.keeper != nil {
		if err := uc.keeper.Drop(ctx); err != nil {
			uc.logger.ErrorContext(ctx, "failed to erase persisted session on sign-out", "error", err)
		}
	}

	if err := uc.accessor.SignOut(ctx); err != nil {
		uc.logger.WarnContext(ctx, "provider sign-out failed, local session cleared anyway", "error", err)
	}
	return nil
}
