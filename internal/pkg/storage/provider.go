// Package storage saves uploaded media and returns public URLs for it.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uzeed/uzeed/internal/pkg/config"
)

// Provider stores objects under a key and returns the URL clients use to fetch them.
type Provider interface {
	Name() string
	Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the provider selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg config.StorageConfig, appEnv string) (Provider, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalProvider(cfg.Dir, cfg.PublicPrefix)
	case "s3":
		return NewS3Provider(ctx, cfg.S3, appEnv)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ObjectKey generates a key like media/2026/03/<uuid>.jpg.
func ObjectKey(ext string, now time.Time) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join("media", fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), uuid.NewString()+ext)
}
