package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminKeyHeader carries the administrator credential on privileged routes.
const AdminKeyHeader = "X-Admin-Key"

// Admin guards privileged operations behind the shared administrator
// credential. The comparison is constant-time.
func Admin(adminKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			supplied := c.Request().Header.Get(AdminKeyHeader)
			if supplied == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing admin key")
			}
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(adminKey)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
