package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/uzeed/uzeed/app/controllers"
	"github.com/uzeed/uzeed/app/repository"
	"github.com/uzeed/uzeed/internal/pkg/billing"
	"github.com/uzeed/uzeed/internal/pkg/cache"
	"github.com/uzeed/uzeed/internal/pkg/config"
	"github.com/uzeed/uzeed/internal/pkg/database"
	"github.com/uzeed/uzeed/internal/pkg/env"
	"github.com/uzeed/uzeed/internal/pkg/feed"
	"github.com/uzeed/uzeed/internal/pkg/jobqueue"
	"github.com/uzeed/uzeed/internal/pkg/router"
	"github.com/uzeed/uzeed/internal/pkg/session"
	"github.com/uzeed/uzeed/internal/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app, cfg := NewApplication()

	go func() {
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort)); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Errorf("Shutdown failed: %v", err)
	}
}

func NewApplication() (*fiber.App, *config.Config) {
	env.SetupEnvFile()
	cfg := config.Load()
	database.SetupDatabase()
	cache.SetupCache()
	session.NewSessionStore()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	provider, err := storage.New(context.Background(), cfg.Storage, cfg.AppEnv)
	if err != nil {
		panic(fmt.Errorf("storage: %w", err))
	}
	log.Infof("Media storage: %s", provider.Name())

	billingSvc := billing.NewServiceFromDB(db, cfg)
	feedSvc := feed.NewService(repos).WithRatingCache(feed.RedisRatingCache{})

	// The API only enqueues jobs; cmd/worker consumes them.
	queue := jobqueue.NewQueue(jobqueue.DefaultWorkers)

	// init fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: controllers.ErrorHandler,
		BodyLimit:    int(storage.MaxVideoBytes) * controllers.MaxPostFiles,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// local uploads are served by the API itself
	if provider.Name() == "local" {
		app.Static("/uploads", cfg.Storage.Dir, fiber.Static{
			CacheDuration: 10 * time.Second,
			MaxAge:        604800, // 7 days
		})
	}

	// SWAGGER / OPENAPI
	if specPath := findOpenAPISpec(); specPath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
		}))
	} else {
		log.Warn("OpenAPI spec not found, /docs/api disabled")
	}

	// ROUTER
	router.InstallRouter(app, cfg, router.NewControllers(cfg, repos, billingSvc, feedSvc, provider, queue))

	return app, cfg
}

func findOpenAPISpec() string {
	// cwd is either the project root or cmd/uzeed
	for _, base := range []string{"./", "../../", "../../../"} {
		p := base + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
