package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uzeed/uzeed/internal/pkg/config"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, cfg *config.Config, c *Controllers) {
	// Ops routes go first so health checks and scrapes skip the session
	// lookup that HttpRouter installs.
	setup(app, NewOpsRouter(cfg), NewHttpRouter(cfg, c))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
