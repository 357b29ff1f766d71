package handler

import (
	"errors"
	"net/http"

	"identity-hub/internal/domain"

	"github.com/labstack/echo/v4"
)

// mapDomainError converts a domain error into an appropriate echo.HTTPError.
// Precondition failures map to 409 with the specific outcome so admin UIs can
// tell "already approved" from "already rejected".
func mapDomainError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		// The rate-limit message carries the remaining lockout minutes.
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())

	case errors.Is(err, domain.ErrInvalidCredential):
		// Sign-in failures surface the provider's own wording.
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())

	case errors.Is(err, domain.ErrEmailNotVerified):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())

	case errors.Is(err, domain.ErrNoSession),
		errors.Is(err, domain.ErrTokenExpired):
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")

	case errors.Is(err, domain.ErrProfileNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "user not found")

	case errors.Is(err, domain.ErrAlreadyApproved):
		return echo.NewHTTPError(http.StatusConflict, "user already approved")

	case errors.Is(err, domain.ErrAlreadyRejected):
		return echo.NewHTTPError(http.StatusConflict, "user already rejected")

	case errors.Is(err, domain.ErrNotRejected):
		return echo.NewHTTPError(http.StatusConflict, "user is not in rejected state")

	case errors.Is(err, domain.ErrPreconditionFailed):
		return echo.NewHTTPError(http.StatusConflict, "approval state already changed")

	case errors.Is(err, domain.ErrTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "identity provider timed out")

	case errors.Is(err, domain.ErrProviderUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "identity provider unavailable")

	case errors.Is(err, domain.ErrProfileUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "profile store unavailable")

	case errors.Is(err, domain.ErrTokenGeneration),
		errors.Is(err, domain.ErrCSRFSecretMissing):
		return echo.NewHTTPError(http.StatusInternalServerError, "token generation error")

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
