// Package config assembles a modelvault.Service from environment
// configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avatarkit/modelvault/pkg/modelvault"
	memorycatalog "github.com/avatarkit/modelvault/pkg/modelvault/catalog/memory"
	pgcatalog "github.com/avatarkit/modelvault/pkg/modelvault/catalog/postgres"
	fsstorage "github.com/avatarkit/modelvault/pkg/modelvault/storage/fs"
	memorystorage "github.com/avatarkit/modelvault/pkg/modelvault/storage/memory"
	s3storage "github.com/avatarkit/modelvault/pkg/modelvault/storage/s3"
)

// ServerConfig represents server configuration for the model vault service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// DatabaseURL selects the catalog backend: empty or "memory" for the
	// in-memory catalog, a postgres:// URL for the postgres catalog.
	DatabaseURL string `env:"DATABASE_URL" env-default:""`

	Storage StorageConfig

	// AllowedExtensions is the comma-separated upload allow-list.
	AllowedExtensions string `env:"ALLOWED_EXTENSIONS" env-default:".vrm"`

	EnableEventLogging bool `env:"ENABLE_EVENT_LOGGING" env-default:"true"`
}

// StorageConfig selects and configures the blob store backend
type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND" env-default:"memory"` // "memory", "fs", "s3"

	FSBaseDir     string `env:"STORAGE_FS_BASE_DIR" env-default:"./data/models"`
	PublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" env-default:""`

	S3 S3Config
}

// S3Config configures the S3 blob store backend
type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	Bucket          string `env:"AWS_S3_BUCKET" env-default:""`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// Load reads the server configuration from the environment
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Storage.Backend {
	case "memory":
	case "fs":
		if c.Storage.FSBaseDir == "" {
			return errors.New("STORAGE_FS_BASE_DIR is required for the fs backend")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("AWS_S3_BUCKET is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}

	if c.DatabaseURL != "" && c.DatabaseURL != "memory" &&
		!strings.HasPrefix(c.DatabaseURL, "postgres://") &&
		!strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", c.DatabaseURL)
	}

	if len(c.allowedExtensions()) == 0 {
		return errors.New("at least one allowed extension is required")
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context) (modelvault.Service, error) {
	catalog, err := c.buildCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	blobs, err := c.buildBlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build blob store: %w", err)
	}

	options := []modelvault.Option{
		modelvault.WithCatalog(catalog),
		modelvault.WithBlobStore(blobs),
		modelvault.WithAllowedExtensions(c.allowedExtensions()...),
	}
	if c.EnableEventLogging {
		options = append(options, modelvault.WithEventSink(modelvault.NewLoggingEventSink(slog.Default())))
	}

	return modelvault.New(options...)
}

// buildCatalog creates a Catalog based on the configuration
func (c *ServerConfig) buildCatalog(ctx context.Context) (modelvault.Catalog, error) {
	if c.DatabaseURL == "" || c.DatabaseURL == "memory" {
		return memorycatalog.New(), nil
	}

	pool, err := pgxpool.New(ctx, c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pgcatalog.NewWithPool(pool), nil
}

// buildBlobStore creates a BlobStore based on the configuration
func (c *ServerConfig) buildBlobStore() (modelvault.BlobStore, error) {
	switch c.Storage.Backend {
	case "memory":
		return memorystorage.NewWithConfig(memorystorage.Config{
			PublicBaseURL: c.Storage.PublicBaseURL,
		}), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:       c.Storage.FSBaseDir,
			PublicBaseURL: c.Storage.PublicBaseURL,
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.Storage.S3.Region,
			Bucket:                 c.Storage.S3.Bucket,
			AccessKeyID:            c.Storage.S3.AccessKeyID,
			SecretAccessKey:        c.Storage.S3.SecretAccessKey,
			Endpoint:               c.Storage.S3.Endpoint,
			UsePathStyle:           c.Storage.S3.UsePathStyle,
			PublicBaseURL:          c.Storage.PublicBaseURL,
			CreateBucketIfNotExist: c.Storage.S3.CreateBucket,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}
}

func (c *ServerConfig) allowedExtensions() []string {
	var exts []string
	for _, ext := range strings.Split(c.AllowedExtensions, ",") {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, strings.ToLower(ext))
	}
	return exts
}
