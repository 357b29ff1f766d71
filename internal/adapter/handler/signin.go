package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"identity-hub/internal/domain"
	"identity-hub/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// SignInHandler handles credential sign-in and verification-mail resends.
type SignInHandler struct {
	uc *usecase.SignIn
}

// NewSignInHandler creates a new sign-in handler.
func NewSignInHandler(uc *usecase.SignIn) *SignInHandler {
	return &SignInHandler{uc: uc}
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signInResponse struct {
	OK      bool        `json:"ok"`
	Session sessionInfo `json:"session"`
}

// Handle processes POST /signin. A locked-out identifier gets 429 with the
// lockout expiry in Retry-After.
func (h *SignInHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	session, err := h.uc.Execute(ctx, req.Email, req.Password)
	if err != nil {
		var rateErr *domain.RateLimitError
		if errors.As(err, &rateErr) {
			retryAfter := int(time.Until(rateErr.ResetAt).Seconds())
			if retryAfter > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
		}
		slog.WarnContext(ctx, "sign-in failed", "error", err, "remote_addr", c.RealIP())
		return mapDomainError(err)
	}

	slog.InfoContext(ctx, "sign-in succeeded", "remote_addr", c.RealIP())
	return c.JSON(http.StatusOK, signInResponse{
		OK:      true,
		Session: sessionInfo{Active: true, ExpiresAt: session.ExpiresAt},
	})
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleResend processes POST /resend-verification for unconfirmed addresses.
func (h *SignInHandler) HandleResend(c echo.Context) error {
	var req resendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	if err := h.uc.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
