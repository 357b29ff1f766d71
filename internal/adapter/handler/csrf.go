package handler

import (
	"log/slog"
	"net/http"

	"identity-hub/internal/usecase"

	"github.com/labstack/echo/v4"
)

// CSRFHandler handles CSRF token requests.
type CSRFHandler struct {
	uc *usecase.GenerateCSRF
}

// NewCSRFHandler creates a new CSRF handler.
func NewCSRFHandler(uc *usecase.GenerateCSRF) *CSRFHandler {
	return &CSRFHandler{uc: uc}
}

// csrfResponse represents the CSRF token response.
type csrfResponse struct {
	Data struct {
		CSRFToken string `json:"csrf_token"`
	} `json:"data"`
}

// Handle derives a CSRF token from the current session.
func (h *CSRFHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	token, err := h.uc.Execute(ctx)
	if err != nil {
		slog.WarnContext(ctx, "csrf token request failed", "error", err)
		return mapDomainError(err)
	}

	resp := csrfResponse{}
	resp.Data.CSRFToken = token
	return c.JSON(http.StatusOK, resp)
}
