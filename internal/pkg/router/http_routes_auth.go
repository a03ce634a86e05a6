package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uzeed/uzeed/internal/pkg/middleware"
)

const authRequestsPerMinute = 20

func (h HttpRouter) registerAuthRoutes(app *fiber.App) {
	auth := app.Group("/auth")
	auth.Post("/register", rateLimit(authRequestsPerMinute), h.c.Auth.HandleRegister)
	auth.Post("/login", rateLimit(authRequestsPerMinute), h.c.Auth.HandleLogin)
	auth.Post("/logout", middleware.RequireAuth, h.c.Auth.HandleLogout)
	auth.Get("/me", h.c.Auth.HandleMe)
}
