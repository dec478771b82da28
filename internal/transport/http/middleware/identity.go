package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// CustomerIDKey is where the resolved caller identity lives in fiber locals.
const CustomerIDKey = "customerID"

// NewIdentityMiddleware resolves the acting customer from the
// X-Customer-Id header stamped by the authenticating edge gateway.
// Identity is always explicit: handlers read it from locals and pass it
// into the service layer, nothing consults ambient state.
func NewIdentityMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("X-Customer-Id")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missing customer identity"})
		}

		customerID, err := strconv.ParseInt(header, 10, 64)
		if err != nil || customerID <= 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: invalid customer identity"})
		}

		c.Locals(CustomerIDKey, customerID)
		return c.Next()
	}
}

// CustomerID extracts the identity set by the middleware.
func CustomerID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(CustomerIDKey).(int64)
	return id, ok
}
