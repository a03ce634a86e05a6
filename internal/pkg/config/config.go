package config

import (
	"strings"
	"time"

	"github.com/uzeed/uzeed/internal/pkg/env"
)

const (
	defaultKhipuBaseURL      = "https://payment-api.khipu.com"
	defaultMembershipDays    = 30
	defaultMembershipPrice   = 5000
	defaultShopMonthlyPrice  = 10000
	defaultKhipuTimeout      = 10 * time.Second
	defaultStorageDir        = "./uploads"
	defaultOutboxInterval    = 5 * time.Second
	defaultReminderHourUTC   = 3
	defaultReminderMinuteUTC = 10
)

// Config is the typed view of the process environment.
type Config struct {
	AppEnv  string
	AppHost string
	AppPort string
	AppURL  string
	APIURL  string

	CORSOrigin string

	// Basic auth for /monitor; the page is disabled when user is empty.
	MonitorUser     string
	MonitorPassword string

	Khipu   KhipuConfig
	Billing BillingConfig
	Storage StorageConfig
	Mail    MailConfig
	Worker  WorkerConfig
}

type KhipuConfig struct {
	BaseURL       string
	APIKey        string
	ReturnURL     string
	CancelURL     string
	NotifyURL     string
	WebhookSecret string
	Timeout       time.Duration
}

type BillingConfig struct {
	MembershipDays       int
	SubscriptionDays     int
	MembershipPriceCLP   int
	ShopMonthlyPriceCLP  int
	ShopTrialDays        int
	DefaultCreatorPrice  int
	MinCreatorPrice      int
	MaxCreatorPrice      int
	WebhookTimestampSkew time.Duration
}

type StorageConfig struct {
	Driver       string // local | s3
	Dir          string
	PublicPrefix string
	S3           S3Config
}

// S3Config configures the S3 compatible media bucket.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // optional, for S3 compatible services
	PublicBaseURL   string // optional CDN or bucket URL used in media links
}

type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

type WorkerConfig struct {
	OutboxWorkers     int
	OutboxInterval    time.Duration
	ReminderHourUTC   int
	ReminderMinuteUTC int
}

// Load reads every setting from env. Call env.SetupEnvFile first.
func Load() *Config {
	apiURL := strings.TrimRight(env.GetEnv("API_URL", "http://localhost:4000"), "/")
	appURL := strings.TrimRight(env.GetEnv("APP_URL", "http://localhost:3000"), "/")

	notifyURL := strings.TrimSpace(env.GetEnv("KHIPU_NOTIFY_URL", ""))
	if notifyURL == "" {
		notifyURL = apiURL + "/webhooks/khipu/payment"
	}

	storageDir := env.GetEnv("UPLOAD_DIR", "")
	if storageDir == "" {
		storageDir = env.GetEnv("STORAGE_DIR", defaultStorageDir)
	}

	return &Config{
		AppEnv:          env.GetEnv("APP_ENV", "prod"),
		AppHost:         env.GetEnv("APP_HOST", "localhost"),
		AppPort:         env.GetEnv("APP_PORT", "4000"),
		AppURL:          appURL,
		APIURL:          apiURL,
		CORSOrigin:      env.GetEnv("CORS_ORIGIN", appURL),
		MonitorUser:     env.GetEnv("MONITOR_USER", ""),
		MonitorPassword: env.GetEnv("MONITOR_PASSWORD", ""),
		Khipu: KhipuConfig{
			BaseURL:       strings.TrimRight(env.GetEnv("KHIPU_BASE_URL", defaultKhipuBaseURL), "/"),
			APIKey:        strings.TrimSpace(env.GetEnv("KHIPU_API_KEY", "")),
			ReturnURL:     env.GetEnv("KHIPU_RETURN_URL", appURL+"/billing/return"),
			CancelURL:     env.GetEnv("KHIPU_CANCEL_URL", appURL+"/billing/cancel"),
			NotifyURL:     notifyURL,
			WebhookSecret: strings.TrimSpace(env.GetEnv("KHIPU_WEBHOOK_SECRET", "")),
			Timeout:       env.GetEnvDuration("KHIPU_TIMEOUT", defaultKhipuTimeout),
		},
		Billing: BillingConfig{
			MembershipDays:       env.GetEnvInt("MEMBERSHIP_DAYS", defaultMembershipDays),
			SubscriptionDays:     env.GetEnvInt("SUBSCRIPTION_DAYS", defaultMembershipDays),
			MembershipPriceCLP:   env.GetEnvInt("MEMBERSHIP_PRICE_CLP", defaultMembershipPrice),
			ShopMonthlyPriceCLP:  env.GetEnvInt("SHOP_MONTHLY_PRICE_CLP", defaultShopMonthlyPrice),
			ShopTrialDays:        env.GetEnvInt("SHOP_TRIAL_DAYS", 30),
			DefaultCreatorPrice:  2500,
			MinCreatorPrice:      100,
			MaxCreatorPrice:      20000,
			WebhookTimestampSkew: 600 * time.Second,
		},
		Storage: StorageConfig{
			Driver:       strings.ToLower(env.GetEnv("STORAGE_DRIVER", "local")),
			Dir:          storageDir,
			PublicPrefix: apiURL + "/uploads",
			S3: S3Config{
				AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
				Region:          env.GetEnv("S3_REGION", "us-east-1"),
				BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
				EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
				PublicBaseURL:   strings.TrimRight(env.GetEnv("S3_PUBLIC_BASE_URL", ""), "/"),
			},
		},
		Mail: MailConfig{
			Host:     env.GetEnv("SMTP_HOST", ""),
			Port:     env.GetEnv("SMTP_PORT", "587"),
			Username: env.GetEnv("SMTP_USERNAME", ""),
			Password: env.GetEnv("SMTP_PASSWORD", ""),
			Sender:   env.GetEnv("SMTP_SENDER", ""),
		},
		Worker: WorkerConfig{
			OutboxWorkers:     env.GetEnvInt("OUTBOX_WORKERS", 2),
			OutboxInterval:    env.GetEnvDuration("OUTBOX_INTERVAL", defaultOutboxInterval),
			ReminderHourUTC:   env.GetEnvInt("REMINDER_HOUR_UTC", defaultReminderHourUTC),
			ReminderMinuteUTC: env.GetEnvInt("REMINDER_MINUTE_UTC", defaultReminderMinuteUTC),
		},
	}
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}
