package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"identity-hub/internal/domain"
)

// SessionKey is the local-store key holding the serialized session blob.
const SessionKey = "identity_session"

// Keeper serializes sessions into the local store and mirrors provider
// auth-state events so the blob tracks every sign-in, refresh, and sign-out.
type Keeper struct {
	store  domain.LocalStore
	logger *slog.Logger
}

// NewKeeper creates a session keeper over the given store.
func NewKeeper(store domain.LocalStore, logger *slog.Logger) *Keeper {
	return &Keeper{store: store, logger: logger}
}

// Load reads and parses the persisted session. A corrupt blob is deleted and
// reported as absent, never as an error the caller must handle.
func (k *Keeper) Load(ctx context.Context) (*domain.Session, error) {
	data, err := k.store.Get(ctx, SessionKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		k.logger.WarnContext(ctx, "corrupt session blob, deleting", "error", err)
		if removeErr := k.store.Remove(ctx, SessionKey); removeErr != nil {
			k.logger.ErrorContext(ctx, "failed to delete corrupt session blob", "error", removeErr)
		}
		return nil, nil
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		k.logger.WarnContext(ctx, "incomplete session blob, deleting")
		_ = k.store.Remove(ctx, SessionKey)
		return nil, nil
	}
	return &session, nil
}

// Save persists the session blob.
func (k *Keeper) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return k.store.Set(ctx, SessionKey, data)
}

// Drop deletes the session blob.
func (k *Keeper) Drop(ctx context.Context) error {
	return k.store.Remove(ctx, SessionKey)
}

// Watch subscribes to provider auth-state events: sign-ins and refreshes
// re-persist the session, sign-out erases it. Returns the unsubscribe.
func (k *Keeper) Watch(provider domain.IdentityProvider) func() {
	return provider.Subscribe(func(event domain.AuthEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		switch event.Type {
		case domain.AuthSignedIn, domain.AuthTokenRefreshed:
			if event.Session == nil {
				return
			}
			if err := k.Save(ctx, event.Session); err != nil {
				k.logger.ErrorContext(ctx, "failed to persist session", "event", event.Type, "error", err)
			}
		case domain.AuthSignedOut:
			if err := k.Drop(ctx); err != nil {
				k.logger.ErrorContext(ctx, "failed to erase persisted session", "error", err)
			}
		}
	})
}
