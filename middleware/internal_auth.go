package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

const sharedSecretHeader = "X-Hub-Internal-Auth"

// InternalAuth gates the admin route group behind the hub's shared secret.
// Both sides are hashed before the constant-time compare so the check never
// leaks the secret's length through timing.
func InternalAuth(sharedSecret string) echo.MiddlewareFunc {
	want := sha256.Sum256([]byte(sharedSecret))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := c.Request().Header.Get(sharedSecretHeader)
			if provided == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing shared secret")
			}
			got := sha256.Sum256([]byte(provided))
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "shared secret mismatch")
			}
			return next(c)
		}
	}
}
