package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated subject stored by JWTAuth, or "anon"
// when the request carries no token.
func UserID(c echo.Context) string {
	if s, ok := subject(c); ok {
		return s
	}
	return "anon"
}

func subject(c echo.Context) (string, bool) {
	s, ok := c.Get(ctxUserID).(string)
	return s, ok && s != ""
}

// deny writes the standard failure envelope.
func deny(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{
		"success": false,
		"error":   echo.Map{"code": code, "message": msg},
	})
}
