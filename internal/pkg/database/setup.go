package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/uzeed/uzeed/app/models"
	"github.com/uzeed/uzeed/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// DSN builds the MySQL data source name from DB_* variables.
func DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

// Models lists every table owned by the application.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Media{},
		&models.ProfileSubscription{},
		&models.PaymentIntent{},
		&models.BillingWebhookEvent{},
		&models.OutboxEvent{},
		&models.Notification{},
		&models.Message{},
		&models.ServiceItem{},
		&models.ServiceRating{},
	}
}

// SetupDatabase connects with retries and auto-migrates when DB_AUTO_MIGRATE
// is true. Production schemas come from cmd/migrate.
func SetupDatabase() {
	var err error
	logLevel := logger.Warn
	if env.GetEnv("APP_ENV", "prod") == "dev" {
		logLevel = logger.Info
	}

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{
			Logger:  logger.Default.LogMode(logLevel),
			NowFunc: func() time.Time { return time.Now().UTC() },
		})
		if err == nil {
			break
		}

		log.Warnf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		panic(err)
	}

	if env.GetEnvBool("DB_AUTO_MIGRATE", false) {
		if err := DB.AutoMigrate(Models()...); err != nil {
			panic(fmt.Errorf("auto migrate: %w", err))
		}
		log.Info("Database schema auto-migrated")
	}
}
