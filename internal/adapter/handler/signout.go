package handler

import (
	"net/http"

	"identity-hub/internal/usecase"

	"github.com/labstack/echo/v4"
)

// SignOutHandler handles POST /signout.
type SignOutHandler struct {
	uc *usecase.SignOut
}

// NewSignOutHandler creates a new sign-out handler.
func NewSignOutHandler(uc *usecase.SignOut) *SignOutHandler {
	return &SignOutHandler{uc: uc}
}

// Handle terminates the session. Local state is always cleared, so the
// response is 204 even when the provider round trip failed.
func (h *SignOutHandler) Handle(c echo.Context) error {
	if err := h.uc.Execute(c.Request().Context()); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
