package middleware

import (
	"strings"

	"github.com/go-pkgz/auth/v2/token"
	"github.com/gofiber/fiber/v2"
)

const (
	JWTCookie   = "JWT"
	userLocal   = "user"
	claimsLocal = "claims"
)

// TokenParser validates a session token.
type TokenParser interface {
	Parse(tokenStr string) (token.Claims, error)
}

// AuthMiddleware accepts a bearer token or the JWT cookie.
func AuthMiddleware(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var tokenStr string
		if bearer, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok {
			tokenStr = strings.TrimSpace(bearer)
		} else {
			tokenStr = c.Cookies(JWTCookie)
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "You are not authorized!",
			})
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil || claims.User == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(userLocal, *claims.User)
		c.Locals(claimsLocal, claims)
		return c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware.
func CurrentUser(c *fiber.Ctx) (token.User, bool) {
	user, ok := c.Locals(userLocal).(token.User)
	return user, ok
}
