package handler

import (
	"net/http"
	"strconv"

	"identity-hub/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ValidateHandler handles GET /validate for reverse-proxy auth_request:
// header-only identity echo, no body.
type ValidateHandler struct {
	identity *usecase.CurrentIdentity
}

// NewValidateHandler creates a new validate handler.
func NewValidateHandler(identity *usecase.CurrentIdentity) *ValidateHandler {
	return &ValidateHandler{identity: identity}
}

// Handle resolves the current identity into response headers.
func (h *ValidateHandler) Handle(c echo.Context) error {
	identity, err := h.identity.Execute(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}
	if identity == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	c.Response().Header().Set("X-Hub-User-Id", identity.ID)
	c.Response().Header().Set("X-Hub-User-Email", identity.Email)
	c.Response().Header().Set("X-Hub-User-Role", string(identity.Role))
	c.Response().Header().Set("X-Hub-Approved", strconv.FormatBool(identity.Approved))
	return c.NoContent(http.StatusOK)
}
