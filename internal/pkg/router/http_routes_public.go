package router

import (
	"github.com/gofiber/fiber/v2"
)

const (
	webhookRequestsPerMinute = 120
	// Khipu callbacks are a few hundred bytes
	webhookBodyLimit = 64 << 10
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Khipu callbacks, signature-verified in the billing service. Both paths
	// share one limiter.
	webhookLimit := rateLimit(webhookRequestsPerMinute)
	app.Post("/webhooks/khipu/payment", webhookLimit, bodyLimit(webhookBodyLimit), h.c.Billing.HandleKhipuWebhook)
	app.Post("/webhooks/khipu", webhookLimit, bodyLimit(webhookBodyLimit), h.c.Billing.HandleKhipuWebhook)

	// Feeds, anonymous visitors get paywalled previews
	app.Get("/feed", h.c.Feed.HandleImages)
	app.Get("/explore", h.c.Feed.HandleExplore)
	app.Get("/posts", h.c.Feed.HandlePosts)
	app.Get("/videos", h.c.Feed.HandleVideos)

	// Directories
	app.Get("/profiles", h.c.Profile.HandleProfiles)
	app.Get("/profiles/:username", h.c.Profile.HandleProfile)
	app.Get("/services", h.c.Service.HandleServices)
}
