package domain

import "context"

// IdentityProvider is the call surface of the remote identity provider.
// GetSession returns (nil, nil) when no session is established.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	GetSession(ctx context.Context) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	SignOut(ctx context.Context) error
	GetUser(ctx context.Context) (*ProviderUser, error)
	ResendVerification(ctx context.Context, email string) error
	// Subscribe registers a listener for auth-state changes and returns an
	// unsubscribe function.
	Subscribe(fn func(AuthEvent)) func()
}

// ProfileStore is the durable per-user record store. UpdateApproval applies
// patch only where the profile's current state equals expect, returning the
// number of rows affected; zero means the precondition did not hold.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateApproval(ctx context.Context, userID string, patch ApprovalPatch, expect ApprovalState) (int64, error)
	ListPending(ctx context.Context, limit int) ([]Profile, error)
}

// LocalStore is the device-durable key/value store used for session blobs.
// Get returns (nil, nil) when the key is absent.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// AttemptLimiter gates sign-in attempts per identifier.
type AttemptLimiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
	Clear(ctx context.Context, identifier string) error
	ResetTime(ctx context.Context, identifier string) (int64, bool)
}

// TokenIssuer mints signed backend tokens asserting a resolved identity.
type TokenIssuer interface {
	IssueBackendToken(identity *Identity, sessionID string) (string, error)
}

// CSRFTokenGenerator generates CSRF tokens from session identifiers.
type CSRFTokenGenerator interface {
	Generate(sessionID string) (string, error)
}
