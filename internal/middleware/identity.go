package middleware

// identity.go holds the helpers that move the authenticated user id between
// the JWT middleware and handlers.

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// ErrNoUser is returned by UserID when the request is not authenticated.
var ErrNoUser = errors.New("invalid user_id in context")

// UserID returns the authenticated user id stored by JWTAuth.
func UserID(c echo.Context) (uint64, error) {
	return parseUserID(c.Get(userIDKey))
}

// SetUserID stores id as the authenticated user; used by JWTAuth and tests.
func SetUserID(c echo.Context, id uint64) { c.Set(userIDKey, id) }

func parseUserID(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, ErrNoUser
}

// userKey is the user component of rate-limit keys.
func userKey(c echo.Context) string {
	if id, err := UserID(c); err == nil {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
