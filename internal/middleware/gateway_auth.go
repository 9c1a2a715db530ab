package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware trusts the X-User-* headers set by the edge proxy
// after ForwardAuth verification. Only enable behind a gateway that strips
// these headers from client requests.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID := c.Get("X-User-Id"); userID != "" {
			c.Locals("userId", userID)
			c.Locals("email", c.Get("X-User-Email"))
		}
		return c.Next()
	}
}
