package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/uzeed/uzeed/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache connects to redis. The API keeps running without it; sessions,
// rating cache and reminder claims fail per call instead.
func SetupCache() {
	addr := fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379"))
	client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("[Cache] Redis at %s unreachable: %v", addr, err)
		return
	}
	log.Infof("[Cache] Connected to redis at %s", addr)
}

// GetClient returns the shared client, connecting on first use.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// SetNX stores value only when key is absent and reports whether it did.
func SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	return GetClient().SetNX(ctx, key, value, expiration).Result()
}

func SetJSON(key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return GetClient().Set(ctx, key, raw, expiration).Err()
}

// GetJSON decodes a cached JSON value into out. A miss returns redis.Nil.
func GetJSON(key string, out interface{}) error {
	raw, err := GetClient().Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// IsMiss reports whether err is a cache miss
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
