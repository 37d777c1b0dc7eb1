package security

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"golang.org/x/crypto/bcrypt"
)

// AdminTokenMiddleware guards ops endpoints with a bearer token checked
// against a bcrypt hash from configuration. An empty hash disables the guard,
// which is the development default.
func AdminTokenMiddleware(tokenHash string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if tokenHash == "" {
				return next(c)
			}

			auth := c.Request().Header.Get("Authorization")
			token := strings.TrimPrefix(auth, "Bearer ")
			if token == auth || token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Missing admin token",
				})
			}

			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Invalid admin token",
				})
			}
			return next(c)
		}
	}
}
