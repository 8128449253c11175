package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
)

// UserID returns the authenticated subject, or "" on anonymous requests.
func UserID(c echo.Context) string {
	s, _ := c.Get(KeyUserID).(string)
	return s
}

// Role returns the authenticated role, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(KeyRole).(string)
	return s
}

// currentUserID is UserID with an "anon" placeholder for key building.
func currentUserID(c echo.Context) string {
	if uid := UserID(c); uid != "" {
		return uid
	}
	return "anon"
}

// deny writes the error envelope shared with the handlers.
func deny(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": code, "message": msg})
}
