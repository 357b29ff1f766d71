package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"identity-hub/internal/domain"
	"identity-hub/internal/infrastructure/localstore"
)

// RestoreSession brings a persisted session back to life on app start or
// foreground. Mobile hosts run this before any identity resolution; web
// hosts skip it and hit the accessor directly.
type RestoreSession struct {
	accessor *SessionAccessor
	keeper   *localstore.Keeper
	logger   *slog.Logger
}

// NewRestoreSession creates a new RestoreSession usecase.
func NewRestoreSession(accessor *SessionAccessor, keeper *localstore.Keeper, logger *slog.Logger) *RestoreSession {
	return &RestoreSession{accessor: accessor, keeper: keeper, logger: logger}
}

// Execute restores the persisted session. Returns nil when there is nothing
// to restore or the blob is unrecoverable; the caller must re-authenticate
// in that case.
func (uc *RestoreSession) Execute(ctx context.Context) (*domain.Session, error) {
	stored, err := uc.keeper.Load(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		// Nothing persisted; fall through to a normal session check.
		return uc.accessor.Session(ctx)
	}

	if stored.Expired(time.Now()) {
		return uc.refreshStored(ctx, stored)
	}

	session, err := uc.accessor.SetSession(ctx, stored.AccessToken, stored.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			// Token revoked provider-side; the blob is useless now
			uc.logger.InfoContext(ctx, "persisted session rejected by provider, erasing")
			if dropErr := uc.keeper.Drop(ctx); dropErr != nil {
				uc.logger.ErrorContext(ctx, "failed to erase rejected session blob", "error", dropErr)
			}
			return nil, nil
		}
		return nil, err
	}

	// Successful restores re-persist through the keeper's event watch;
	// this direct save covers deployments that never wired Watch.
	if err := uc.keeper.Save(ctx, session); err != nil {
		uc.logger.ErrorContext(ctx, "failed to re-persist restored session", "error", err)
	}
	return session, nil
}

// refreshStored exchanges the stored refresh token for a new session.
func (uc *RestoreSession) refreshStored(ctx context.Context, stored *domain.Session) (*domain.Session, error) {
	session, err := uc.accessor.Refresh(ctx, stored.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			uc.logger.InfoContext(ctx, "stored refresh token rejected, erasing session blob")
			if dropErr := uc.keeper.Drop(ctx); dropErr != nil {
				uc.logger.ErrorContext(ctx, "failed to erase session blob", "error", dropErr)
			}
			return nil, nil
		}
		return nil, err
	}

	if err := uc.keeper.Save(ctx, session); err != nil {
		uc.logger.ErrorContext(ctx, "failed to re-persist refreshed session", "error", err)
	}
	return session, nil
}
