package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uzeed/uzeed/internal/pkg/session"
	"github.com/uzeed/uzeed/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session once per request so handlers
// read the caller from Locals.
func UserContextMiddleware(c *fiber.Ctx) error {
	userID, role := session.CurrentUser(c)
	usercontext.Set(c, usercontext.UserContext{
		UserID:     userID,
		Role:       role,
		IsLoggedIn: userID != 0,
	})
	return c.Next()
}
