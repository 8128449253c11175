package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// CallbackTokenHeader carries the shared secret of gateway callbacks.
const CallbackTokenHeader = "X-Callback-Token"

// CallbackToken guards the payment confirmation endpoint.  An empty
// token disables the check.
func CallbackToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if token == "" {
			return next
		}
		want := []byte(token)
		return func(c echo.Context) error {
			got := []byte(c.Request().Header.Get(CallbackTokenHeader))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				return deny(c, http.StatusUnauthorized, "unauthorized", "invalid callback token")
			}
			return next(c)
		}
	}
}
