package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uzeed/uzeed/internal/pkg/middleware"
)

const paymentStartsPerMinute = 10

// registerMemberRoutes installs everything that needs a signed in user.
func (h HttpRouter) registerMemberRoutes(app *fiber.App) {
	app.Get("/dashboard", middleware.RequireAuth, h.c.Feed.HandleDashboard)

	billing := app.Group("/billing", middleware.RequireAuth)
	start := rateLimit(paymentStartsPerMinute)
	billing.Post("/creator-subscriptions/start", start, h.c.Billing.HandleStartCreatorSubscription)
	billing.Post("/shop-plan/start", start, h.c.Billing.HandleStartShopPlan)
	billing.Post("/shop-plans/start", start, h.c.Billing.HandleStartShopPlan)
	billing.Post("/membership/start", start, h.c.Billing.HandleStartMembership)
	billing.Get("/intents/:id", h.c.Billing.HandleGetIntent)
	billing.Post("/intents/:id/refresh", h.c.Billing.HandleRefreshIntent)

	creator := app.Group("/creator", middleware.RequireAuth)
	creator.Get("/posts", h.c.Creator.HandleMyPosts)
	creator.Post("/posts", h.c.Creator.HandleCreatePost)
	creator.Put("/posts/:id", h.c.Creator.HandleUpdatePost)
	creator.Delete("/posts/:id", h.c.Creator.HandleDeletePost)

	// inbox is registered before :userId so it is not parsed as an id
	messages := app.Group("/messages", middleware.RequireAuth)
	messages.Get("/inbox", h.c.Message.HandleInbox)
	messages.Get("/:userId", h.c.Message.HandleConversation)
	messages.Post("/:userId", h.c.Message.HandleSend)
	messages.Post("/:userId/attachment", h.c.Message.HandleSendAttachment)

	notifications := app.Group("/notifications", middleware.RequireAuth)
	notifications.Get("/", h.c.Notification.HandleList)
	notifications.Post("/:id/read", h.c.Notification.HandleMarkRead)

	app.Post("/services/:userId/rating", middleware.RequireAuth, h.c.Service.HandleRate)
}
