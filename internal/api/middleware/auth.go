package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TokenValidator checks a bearer token and returns the subject donor id.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// Auth validates the bearer token and injects the subject donor id into
// the request context under "subject".
func Auth(tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			subject, err := tokens.Validate(parts[1])
			if err != nil {
				// Expired vs invalid is resolved by the central error handler.
				return err
			}

			c.Set("subject", subject)
			return next(c)
		}
	}
}
