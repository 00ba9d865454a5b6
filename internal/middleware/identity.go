package middleware

// identity.go reads back what JWTAuth stored in the Echo context.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated profile ID, or "" for anonymous
// requests.
func UserID(c echo.Context) string { return ctxString(c, CtxUserID) }

// Role returns the caller's global role, or "".
func Role(c echo.Context) string { return ctxString(c, CtxRole) }

// Email returns the email claim of the caller's token, or "".
func Email(c echo.Context) string { return ctxString(c, CtxEmail) }

// identity is the value rate limit keys are built from.
func identity(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}

func ctxString(c echo.Context, key string) string {
	s, _ := c.Get(key).(string)
	return s
}
