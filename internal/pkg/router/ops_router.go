package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uzeed/uzeed/internal/pkg/config"
)

// OpsRouter serves health, Prometheus metrics and the fiber monitor page.
type OpsRouter struct {
	cfg *config.Config
}

func NewOpsRouter(cfg *config.Config) *OpsRouter {
	return &OpsRouter{cfg: cfg}
}

func (o OpsRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if o.cfg.MonitorUser != "" {
		app.Get("/monitor", basicauth.New(basicauth.Config{
			Users: map[string]string{
				o.cfg.MonitorUser: o.cfg.MonitorPassword,
			},
		}), monitor.New(monitor.Config{Title: "Uzeed Monitor"}))
	}
}
