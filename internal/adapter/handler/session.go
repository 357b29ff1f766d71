package handler

import (
	"net/http"

	"identity-hub/internal/domain"
	"identity-hub/internal/usecase"

	"github.com/labstack/echo/v4"
)

// SessionHandler handles GET /session, returning the resolved identity for
// the frontend plus a backend token header for downstream services.
type SessionHandler struct {
	identity         *usecase.CurrentIdentity
	accessor         *usecase.SessionAccessor
	issuer           domain.TokenIssuer
	authSharedSecret string
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(identity *usecase.CurrentIdentity, accessor *usecase.SessionAccessor, issuer domain.TokenIssuer, authSharedSecret string) *SessionHandler {
	return &SessionHandler{identity: identity, accessor: accessor, issuer: issuer, authSharedSecret: authSharedSecret}
}

// sessionUser represents the user object in the response.
type sessionUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role"`
	Approved    bool   `json:"approved"`
}

// sessionInfo represents the session object in the response.
type sessionInfo struct {
	Active    bool  `json:"active"`
	ExpiresAt int64 `json:"expiresAt,omitempty"`
}

// sessionResponse represents the JSON response structure.
type sessionResponse struct {
	OK      bool        `json:"ok"`
	User    sessionUser `json:"user"`
	Session sessionInfo `json:"session"`
}

// Handle resolves the current identity and returns it as JSON. The backend
// token asserts the resolved role and approval, never client input.
func (h *SessionHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := h.identity.Execute(ctx)
	if err != nil {
		return mapDomainError(err)
	}
	if identity == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	session, err := h.accessor.Session(ctx)
	if err != nil {
		return mapDomainError(err)
	}
	if session == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	backendToken, err := h.issuer.IssueBackendToken(identity, session.RefreshToken)
	if err != nil {
		return mapDomainError(domain.ErrTokenGeneration)
	}
	c.Response().Header().Set("X-Hub-Backend-Token", backendToken)

	// Legacy: shared secret header for services still on the old contract
	if h.authSharedSecret != "" {
		c.Response().Header().Set("X-Hub-Shared-Secret", h.authSharedSecret)
	}

	return c.JSON(http.StatusOK, sessionResponse{
		OK: true,
		User: sessionUser{
			ID:          identity.ID,
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
			Role:        string(identity.Role),
			Approved:    identity.Approved,
		},
		Session: sessionInfo{
			Active:    true,
			ExpiresAt: session.ExpiresAt,
		},
	})
}
