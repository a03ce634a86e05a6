package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uzeed/uzeed/internal/pkg/usercontext"
)

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "UNAUTHENTICATED"})
	}
	return c.Next()
}

// RequireAdmin rejects non-admins with 403.
func RequireAdmin(c *fiber.Ctx) error {
	u := usercontext.GetUserContext(c)
	if !u.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "UNAUTHENTICATED"})
	}
	if !u.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "FORBIDDEN"})
	}
	return c.Next()
}
