package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/uzeed/uzeed/app/controllers"
	"github.com/uzeed/uzeed/internal/pkg/config"
	"github.com/uzeed/uzeed/internal/pkg/middleware"
)

type HttpRouter struct {
	cfg *config.Config
	c   *Controllers
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins:     h.cfg.CORSOrigin,
		AllowCredentials: h.cfg.CORSOrigin != "*",
		AllowHeaders:     "Origin, Content-Type, Accept",
	}))

	// Apply UserContext middleware globally so every handler can read the caller
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
	h.registerAuthRoutes(app)
	h.registerMemberRoutes(app)
	h.registerAdminRoutes(app)
}

func NewHttpRouter(cfg *config.Config, c *Controllers) *HttpRouter {
	return &HttpRouter{cfg: cfg, c: c}
}

// rateLimit allows max requests per client IP and minute.
func rateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   time.Minute,
		KeyGenerator: controllers.GetClientIP,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "RATE_LIMITED"})
		},
	})
}

// bodyLimit rejects request bodies larger than max bytes before the handler
// sees them.
func bodyLimit(max int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Request().Header.ContentLength() > max || len(c.Body()) > max {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "PAYLOAD_TOO_LARGE"})
		}
		return c.Next()
	}
}
