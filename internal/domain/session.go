package domain

import "time"

// Session is a provider-issued credential pair with an expiry.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // epoch seconds
}

// Expired reports whether the session's expiry is at or before now.
// An expired session must never be used without a refresh attempt.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.Unix()
}

// ProviderUser is the raw identity the provider returns for GetUser.
type ProviderUser struct {
	ID    string
	Email string
}

// Identity is the resolved application-facing user. Role and Approved are
// derived by the resolver; no other component may infer them independently.
type Identity struct {
	ID          string
	Email       string
	Role        Role
	DisplayName string
	Approved    bool
}

// AuthEventType enumerates provider auth-state notifications.
type AuthEventType string

const (
	AuthSignedIn       AuthEventType = "SIGNED_IN"
	AuthSignedOut      AuthEventType = "SIGNED_OUT"
	AuthTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is delivered to subscribers on every auth-state change.
// Session is nil for SIGNED_OUT.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}
