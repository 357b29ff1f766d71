package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"identity-hub/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// ProviderClient talks to the remote identity provider over its token API.
// It keeps the current session in memory and fans auth-state events out to
// subscribers. Implements domain.IdentityProvider.
type ProviderClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.Mutex
	current *domain.Session

	subMu   sync.Mutex
	subs    map[int]func(domain.AuthEvent)
	nextSub int
}

// NewProviderClient creates a provider client with tuned HTTP transport.
func NewProviderClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *ProviderClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	return &ProviderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger,
		subs:   make(map[int]func(domain.AuthEvent)),
	}
}

// tokenResponse is the provider's token grant response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// userResponse is the provider's user lookup response.
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// apiError is the provider's error envelope. Different endpoints use
// different field names, so all are collected.
type apiError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
}

func (e *apiError) text() string {
	for _, s := range []string{e.Description, e.Msg, e.Message, e.Code} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignIn exchanges credentials for a session and emits SIGNED_IN.
func (c *ProviderClient) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	var tok tokenResponse
	status, apiErr, err := c.doJSON(ctx, http.MethodPost, "/token?grant_type=password", "",
		map[string]string{"email": email, "password": password}, &tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, mapSignInError(status, apiErr)
	}

	session := c.sessionFromToken(&tok)
	c.setCurrent(session)
	c.emit(domain.AuthEvent{Type: domain.AuthSignedIn, Session: session})
	return session, nil
}

// GetSession returns the current in-memory session, nil when none.
func (c *ProviderClient) GetSession(_ context.Context) (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, nil
	}
	copied := *c.current
	return &copied, nil
}

// RefreshSession exchanges a refresh token for a new session and emits
// TOKEN_REFRESHED. A provider rejection maps to ErrTokenExpired.
func (c *ProviderClient) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	var tok tokenResponse
	status, apiErr, err := c.doJSON(ctx, http.MethodPost, "/token?grant_type=refresh_token", "",
		map[string]string{"refresh_token": refreshToken}, &tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %s", domain.ErrTokenExpired, apiErr.text())
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned status %d", domain.ErrProviderUnavailable, status)
	}

	session := c.sessionFromToken(&tok)
	c.setCurrent(session)
	c.emit(domain.AuthEvent{Type: domain.AuthTokenRefreshed, Session: session})
	return session, nil
}

// SetSession re-establishes provider-side context from a stored token pair.
// The access token is validated against the user endpoint; a rejection falls
// back to a refresh so a stale-but-refreshable pair still restores.
func (c *ProviderClient) SetSession(ctx context.Context, accessToken, refreshToken string) (*domain.Session, error) {
	var user userResponse
	status, apiErr, err := c.doJSON(ctx, http.MethodGet, "/user", accessToken, nil, &user)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}

	switch status {
	case http.StatusOK:
		session := &domain.Session{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    tokenExpiry(accessToken),
		}
		c.setCurrent(session)
		c.emit(domain.AuthEvent{Type: domain.AuthSignedIn, Session: session})
		return session, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return c.RefreshSession(ctx, refreshToken)
	default:
		return nil, fmt.Errorf("%w: provider returned status %d: %s",
			domain.ErrProviderUnavailable, status, apiErr.text())
	}
}

// SignOut revokes the session with the provider and clears local state.
// Local state is cleared even when the provider call fails.
func (c *ProviderClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.current
	c.current = nil
	c.mu.Unlock()

	c.emit(domain.AuthEvent{Type: domain.AuthSignedOut})

	if current == nil {
		return nil
	}

	status, _, err := c.doJSON(ctx, http.MethodPost, "/logout", current.AccessToken, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		c.logger.Warn("provider sign-out returned unexpected status", "status", status)
	}
	return nil
}

// GetUser fetches the identity behind the current session. An access token
// past its expiry gets a refresh before the lookup; the same single refresh
// covers a provider rejection of a token the local expiry hint believed
// fresh. Only a rejected refresh token means the session is gone.
func (c *ProviderClient) GetUser(ctx context.Context) (*domain.ProviderUser, error) {
	session, _ := c.GetSession(ctx)
	if session == nil {
		return nil, domain.ErrNoSession
	}

	refreshed := false
	if session.Expired(time.Now()) {
		fresh, err := c.RefreshSession(ctx, session.RefreshToken)
		if err != nil {
			return nil, err
		}
		session = fresh
		refreshed = true
	}

	user, status, apiErr, err := c.fetchUser(ctx, session.AccessToken)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return user, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		if refreshed {
			// A token minted moments ago was rejected; refreshing again
			// cannot help.
			return nil, domain.ErrNoSession
		}
		fresh, refreshErr := c.RefreshSession(ctx, session.RefreshToken)
		if refreshErr != nil {
			return nil, refreshErr
		}
		user, status, _, err = c.fetchUser(ctx, fresh.AccessToken)
		if err != nil {
			return nil, err
		}
		if status == http.StatusOK {
			return user, nil
		}
		return nil, domain.ErrNoSession
	default:
		return nil, fmt.Errorf("%w: provider returned status %d: %s",
			domain.ErrProviderUnavailable, status, apiErr.text())
	}
}

func (c *ProviderClient) fetchUser(ctx context.Context, accessToken string) (*domain.ProviderUser, int, *apiError, error) {
	var user userResponse
	status, apiErr, err := c.doJSON(ctx, http.MethodGet, "/user", accessToken, nil, &user)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	return &domain.ProviderUser{ID: user.ID, Email: user.Email}, status, apiErr, nil
}

// ResendVerification asks the provider to resend the sign-up verification mail.
func (c *ProviderClient) ResendVerification(ctx context.Context, email string) error {
	status, apiErr, err := c.doJSON(ctx, http.MethodPost, "/resend", "",
		map[string]string{"type": "signup", "email": email}, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("%w: provider returned status %d: %s",
			domain.ErrProviderUnavailable, status, apiErr.text())
	}
	return nil
}

// Subscribe registers an auth-event listener and returns its unsubscribe.
func (c *ProviderClient) Subscribe(fn func(domain.AuthEvent)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *ProviderClient) emit(event domain.AuthEvent) {
	c.subMu.Lock()
	fns := make([]func(domain.AuthEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

func (c *ProviderClient) setCurrent(session *domain.Session) {
	c.mu.Lock()
	c.current = session
	c.mu.Unlock()
}

// sessionFromToken builds a Session, recovering the expiry from the access
// token's exp claim when the response carries neither expires_at nor
// expires_in.
func (c *ProviderClient) sessionFromToken(tok *tokenResponse) *domain.Session {
	expiresAt := tok.ExpiresAt
	if expiresAt == 0 && tok.ExpiresIn > 0 {
		expiresAt = time.Now().Unix() + tok.ExpiresIn
	}
	if expiresAt == 0 {
		expiresAt = tokenExpiry(tok.AccessToken)
	}
	return &domain.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
	}
}

// tokenExpiry extracts the exp claim without verifying the signature; the
// provider remains the authority, this is only a local freshness hint.
func tokenExpiry(accessToken string) int64 {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Unix()
}

// mapSignInError converts a sign-in rejection into the domain taxonomy,
// preserving the provider's message for user-facing display.
func mapSignInError(status int, apiErr *apiError) error {
	msg := apiErr.text()
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized:
		if strings.Contains(strings.ToLower(msg), "not confirmed") ||
			strings.Contains(strings.ToLower(msg), "not verified") {
			return fmt.Errorf("%w: %s", domain.ErrEmailNotVerified, msg)
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidCredential, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, msg)
	default:
		return fmt.Errorf("%w: provider returned status %d: %s", domain.ErrProviderUnavailable, status, msg)
	}
}

// doJSON performs one provider round-trip. The returned apiError is never nil.
func (c *ProviderClient) doJSON(ctx context.Context, method, path, bearer string, body, out any) (int, *apiError, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, &apiError{}, nil
	}

	if resp.StatusCode >= 400 {
		apiErr := &apiError{}
		_ = json.Unmarshal(data, apiErr)
		return resp.StatusCode, apiErr, nil
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, &apiError{}, fmt.Errorf("decode provider response: %w", err)
		}
	}
	return resp.StatusCode, &apiError{}, nil
}
