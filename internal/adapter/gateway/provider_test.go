package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"identity-hub/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ProviderClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewProviderClient(srv.URL, "test-api-key", 2*time.Second, slog.Default())
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestProviderClient_SignIn_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "test-api-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u@example.com", body["email"])

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	})

	var events []domain.AuthEvent
	client.Subscribe(func(e domain.AuthEvent) { events = append(events, e) })

	session, err := client.SignIn(context.Background(), "u@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "access-1", session.AccessToken)
	assert.Equal(t, "refresh-1", session.RefreshToken)
	assert.False(t, session.Expired(time.Now()))

	// Event and in-memory session follow the sign-in
	require.Len(t, events, 1)
	assert.Equal(t, domain.AuthSignedIn, events[0].Type)

	current, err := client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", current.AccessToken)
}

func TestProviderClient_SignIn_InvalidCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid login credentials"})
	})

	session, err := client.SignIn(context.Background(), "u@example.com", "wrong")
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredential))
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestProviderClient_SignIn_EmailNotVerified(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error_description": "Email not confirmed"})
	})

	_, err := client.SignIn(context.Background(), "u@example.com", "pw")
	assert.True(t, errors.Is(err, domain.ErrEmailNotVerified))
}

func TestProviderClient_RefreshSession_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid Refresh Token"})
	})

	session, err := client.RefreshSession(context.Background(), "stale")
	assert.Nil(t, session)
	assert.True(t, errors.Is(err, domain.ErrTokenExpired))
}

func TestProviderClient_RefreshSession_EmitsTokenRefreshed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
			"expires_at":    time.Now().Add(time.Hour).Unix(),
		})
	})

	var events []domain.AuthEvent
	client.Subscribe(func(e domain.AuthEvent) { events = append(events, e) })

	session, err := client.RefreshSession(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", session.AccessToken)
	require.Len(t, events, 1)
	assert.Equal(t, domain.AuthTokenRefreshed, events[0].Type)
	require.NotNil(t, events[0].Session)
	assert.Equal(t, "refresh-2", events[0].Session.RefreshToken)
}

func TestProviderClient_SetSession_ValidToken(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		assert.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "u@example.com"})
	})

	session, err := client.SetSession(context.Background(), access, "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, access, session.AccessToken)
	// Expiry recovered from the access token's exp claim
	assert.False(t, session.Expired(time.Now()))
	assert.True(t, session.Expired(time.Now().Add(2*time.Hour)))
}

func TestProviderClient_SetSession_RevokedFallsBackToRefresh(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/user" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
			"expires_in":    3600,
		})
	})

	session, err := client.SetSession(context.Background(), "revoked", "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", session.AccessToken)
}

func TestProviderClient_GetUser_NoSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without a session")
	})

	user, err := client.GetUser(context.Background())
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, domain.ErrNoSession))
}

func TestProviderClient_GetUser_ExpiredSessionRefreshedFirst(t *testing.T) {
	refreshCalls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			switch r.URL.Query().Get("grant_type") {
			case "password":
				json.NewEncoder(w).Encode(map[string]any{
					"access_token":  "stale-access",
					"refresh_token": "refresh-1",
					"expires_at":    time.Now().Add(-time.Hour).Unix(),
				})
			case "refresh_token":
				refreshCalls++
				json.NewEncoder(w).Encode(map[string]any{
					"access_token":  "fresh-access",
					"refresh_token": "refresh-2",
					"expires_in":    3600,
				})
			}
		case "/user":
			if r.Header.Get("Authorization") != "Bearer fresh-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "u@example.com"})
		}
	})

	_, err := client.SignIn(context.Background(), "u@example.com", "pw")
	require.NoError(t, err)

	user, err := client.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, 1, refreshCalls)

	// The refreshed pair replaced the stale one
	current, err := client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", current.RefreshToken)
}

func TestProviderClient_GetUser_ExpiredAndRefreshRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/token" && r.URL.Query().Get("grant_type") == "password":
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "stale-access",
				"refresh_token": "revoked-refresh",
				"expires_at":    time.Now().Add(-time.Hour).Unix(),
			})
		case r.URL.Path == "/token":
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid Refresh Token"})
		case r.URL.Path == "/user":
			t.Fatal("no user lookup expected once the refresh is rejected")
		}
	})

	_, err := client.SignIn(context.Background(), "u@example.com", "pw")
	require.NoError(t, err)

	user, err := client.GetUser(context.Background())
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, domain.ErrTokenExpired))
}

func TestProviderClient_GetUser_RejectedFreshTokenRetriedOnce(t *testing.T) {
	refreshCalls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			switch r.URL.Query().Get("grant_type") {
			case "password":
				// Locally believed fresh, rejected server-side anyway
				json.NewEncoder(w).Encode(map[string]any{
					"access_token":  "revoked-access",
					"refresh_token": "refresh-1",
					"expires_in":    3600,
				})
			case "refresh_token":
				refreshCalls++
				json.NewEncoder(w).Encode(map[string]any{
					"access_token":  "fresh-access",
					"refresh_token": "refresh-2",
					"expires_in":    3600,
				})
			}
		case "/user":
			if r.Header.Get("Authorization") != "Bearer fresh-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "u@example.com"})
		}
	})

	_, err := client.SignIn(context.Background(), "u@example.com", "pw")
	require.NoError(t, err)

	user, err := client.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u@example.com", user.Email)
	assert.Equal(t, 1, refreshCalls)
}

func TestProviderClient_SignOut_ClearsSessionAndEmits(t *testing.T) {
	var loggedOut bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"expires_in":    3600,
			})
		case "/logout":
			loggedOut = true
			w.WriteHeader(http.StatusNoContent)
		}
	})

	_, err := client.SignIn(context.Background(), "u@example.com", "pw")
	require.NoError(t, err)

	var events []domain.AuthEvent
	client.Subscribe(func(e domain.AuthEvent) { events = append(events, e) })

	require.NoError(t, client.SignOut(context.Background()))
	assert.True(t, loggedOut)

	session, err := client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)

	require.Len(t, events, 1)
	assert.Equal(t, domain.AuthSignedOut, events[0].Type)
	assert.Nil(t, events[0].Session)
}

func TestProviderClient_Unsubscribe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "a",
			"refresh_token": "r",
			"expires_in":    3600,
		})
	})

	calls := 0
	unsubscribe := client.Subscribe(func(domain.AuthEvent) { calls++ })

	_, err := client.SignIn(context.Background(), "u@example.com", "pw")
	require.NoError(t, err)
	unsubscribe()
	_, err = client.SignIn(context.Background(), "u@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}
