package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

const InternalKeyHeader = "X-Internal-Key"

// RequireInternalKey guards service-to-service routes. An empty key
// disables every guarded route.
func RequireInternalKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get(InternalKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized",
			})
		}
		return c.Next()
	}
}
