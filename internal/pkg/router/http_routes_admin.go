package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uzeed/uzeed/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	if h.c.Admin == nil {
		return
	}
	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/queue", h.c.Admin.HandleQueueStats)
	adminGroup.Get("/queue/jobs/:id", h.c.Admin.HandleQueueJob)
}
