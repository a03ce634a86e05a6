package session

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/uzeed/uzeed/internal/pkg/cache"
	"github.com/uzeed/uzeed/internal/pkg/env"
)

const (
	CookieName = "uzeed_session"
	KeyUserID  = "user_id"
	KeyRole    = "role"
	Expiration = 30 * 24 * time.Hour
)

var ErrNotInitialized = errors.New("session store not initialized")

var sessionStore *session.Store

// NewSessionStore keeps sessions in redis DB 1 next to the cache on DB 0.
func NewSessionStore() *session.Store {
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		if h, p, err := net.SplitHostPort(cacheClient.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	sessionStore = session.New(newConfig(storage))
	return sessionStore
}

func newConfig(storage fiber.Storage) session.Config {
	return session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   env.GetEnv("APP_ENV", "prod") == "prod",
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		CookieDomain:   env.GetEnv("COOKIE_DOMAIN", ""),
		Expiration:     Expiration,
		KeyLookup:      "cookie:" + CookieName,
	}
}

// SetSessionStore installs a store, used by tests with in-memory storage.
func SetSessionStore(store *session.Store) {
	sessionStore = store
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// Login rotates the session id and binds it to the user.
func Login(c *fiber.Ctx, userID uint, role string) error {
	if sessionStore == nil {
		return ErrNotInitialized
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(KeyUserID, userID)
	sess.Set(KeyRole, role)
	return sess.Save()
}

func Logout(c *fiber.Ctx) error {
	if sessionStore == nil {
		return ErrNotInitialized
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}

// CurrentUser returns the logged in user id and role; id is 0 for anonymous requests.
func CurrentUser(c *fiber.Ctx) (uint, string) {
	if sessionStore == nil {
		return 0, ""
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return 0, ""
	}
	id, _ := sess.Get(KeyUserID).(uint)
	role, _ := sess.Get(KeyRole).(string)
	return id, role
}
