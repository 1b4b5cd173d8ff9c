package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// CapabilityChecker resolves whether a user holds a capability.
type CapabilityChecker interface {
	HasCapability(ctx context.Context, userID uint64, capability string) (bool, error)
}

// RequireCapability rejects requests whose user lacks capability with 403.
// It must run after JWTAuth.
func RequireCapability(checker CapabilityChecker, capability string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, err := UserID(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			ok, err := checker.HasCapability(c.Request().Context(), uid, capability)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "capability lookup failed"})
			}
			if !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
