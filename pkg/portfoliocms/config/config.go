package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
	cachememory "github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/cache/memory"
	cacheredis "github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/cache/redis"
	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/repo/memory"
	repopg "github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/repo/postgres"
	reposqlite "github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/repo/sqlite"
	fsstorage "github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/storage/fs"
	memorystorage "github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/storage/memory"
	s3storage "github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:             "8080",
		Environment:      "development",
		LogLevel:         "info",
		DatabaseType:     "memory",
		StorageType:      "memory",
		UploadDir:        "./uploads",
		CacheType:        "memory",
		CacheTTL:         portfoliocms.DefaultCacheTTL,
		VersionRetention: portfoliocms.DefaultVersionRetention,
		MaxUploadBytes:   portfoliocms.DefaultMaxUploadBytes,
		ThumbnailSize:    portfoliocms.DefaultThumbnailSize,
		ThumbnailPixels:  portfoliocms.DefaultThumbnailPixels,
		AutoMigrate:      true,
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// ServerConfig represents server configuration for the portfolio CMS
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing
	LogLevel    string // debug, info, warn, error

	// Database configuration
	DatabaseType string // "memory", "postgres", "sqlite"
	DatabaseURL  string // Postgres connection string or SQLite file path
	DBSchema     string // Postgres schema to use (optional)
	AutoMigrate  bool

	// Storage configuration
	StorageType     string // "memory", "fs", "s3"
	UploadDir       string // fs base directory
	UploadURLPrefix string // optional public URL the upload dir is served under
	S3              S3Config

	// Cache configuration
	CacheType string // "memory", "redis", "none"
	CacheURL  string
	CacheTTL  time.Duration

	// Content options
	VersionRetention int
	MaxUploadBytes   int64
	ThumbnailSize    uint
	ThumbnailPixels  int
	PublicBaseURL    string

	// JWTSecret enables bearer auth on mutating routes when set.
	JWTSecret string
}

// S3Config holds the S3 blob store settings
type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
	PublicBaseURL   string
}

// IsProduction reports whether error details must be hidden from clients.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Environment {
	case "development", "production", "testing":
	default:
		return fmt.Errorf("environment must be 'development', 'production' or 'testing', got: %s", c.Environment)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.DatabaseType {
	case "memory":
	case "postgres", "sqlite":
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when using %s", c.DatabaseType)
		}
	default:
		return errors.New("database_type must be 'memory', 'postgres' or 'sqlite'")
	}

	switch c.StorageType {
	case "memory":
	case "fs":
		if c.UploadDir == "" {
			return errors.New("upload_dir is required for filesystem storage")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required for s3 storage")
		}
	default:
		return errors.New("storage_type must be 'memory', 'fs' or 's3'")
	}

	switch c.CacheType {
	case "memory", "none":
	case "redis":
		if c.CacheURL == "" {
			return errors.New("cache_url is required when using redis")
		}
	default:
		return errors.New("cache_type must be 'memory', 'redis' or 'none'")
	}

	if c.VersionRetention < 1 {
		return errors.New("version_retention must be at least 1")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}

	return nil
}

// Services bundles everything BuildService wires together.
type Services struct {
	Content    portfoliocms.Service
	Media      portfoliocms.MediaService
	Repository portfoliocms.Repository
	Logger     *slog.Logger

	closers []func() error
}

// Close releases pools and clients in reverse order of creation.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildService creates the content and media services from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	services := &Services{Logger: logger}

	repo, err := c.BuildRepository(ctx, services)
	if err != nil {
		_ = services.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	services.Repository = repo

	if c.AutoMigrate {
		if m, ok := repo.(portfoliocms.Migrator); ok {
			if err := m.Migrate(ctx); err != nil {
				_ = services.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
	}

	store, err := c.buildStorageBackend(ctx)
	if err != nil {
		_ = services.Close()
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.StorageType, err)
	}

	cache, err := c.buildCache(ctx, services)
	if err != nil {
		_ = services.Close()
		return nil, fmt.Errorf("failed to build cache %s: %w", c.CacheType, err)
	}

	options := []portfoliocms.Option{
		portfoliocms.WithRepository(repo),
		portfoliocms.WithBlobStore(store),
		portfoliocms.WithCache(cache),
		portfoliocms.WithLogger(logger),
		portfoliocms.WithEventSink(portfoliocms.NewLoggingEventSink(logger)),
		portfoliocms.WithVersionRetention(c.VersionRetention),
		portfoliocms.WithCacheTTL(c.CacheTTL),
		portfoliocms.WithMaxUploadBytes(c.MaxUploadBytes),
		portfoliocms.WithThumbnailSize(c.ThumbnailSize),
		portfoliocms.WithThumbnailPixelLimit(c.ThumbnailPixels),
		portfoliocms.WithPublicBaseURL(c.PublicBaseURL),
	}

	if services.Content, err = portfoliocms.New(options...); err != nil {
		_ = services.Close()
		return nil, err
	}
	if services.Media, err = portfoliocms.NewMediaService(options...); err != nil {
		_ = services.Close()
		return nil, err
	}
	return services, nil
}

// BuildRepository creates a Repository based on the configuration. Pools it
// opens are registered with services for Close.
func (c *ServerConfig) BuildRepository(ctx context.Context, services *Services) (portfoliocms.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil

	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		// Optionally set search_path for the connection
		if schema := c.DBSchema; schema != "" {
			cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
				_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
				return err
			}
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
		services.closers = append(services.closers, func() error { pool.Close(); return nil })
		return repopg.NewWithPool(pool), nil

	case "sqlite":
		db, err := reposqlite.Open(strings.TrimPrefix(c.DatabaseURL, "sqlite://"))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		services.closers = append(services.closers, db.Close)
		return reposqlite.New(db), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// buildStorageBackend creates a BlobStore based on the configuration
func (c *ServerConfig) buildStorageBackend(ctx context.Context) (portfoliocms.BlobStore, error) {
	switch c.StorageType {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.UploadDir,
			URLPrefix: c.UploadURLPrefix,
		})

	case "s3":
		return s3storage.New(ctx, s3storage.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
			PublicBaseURL:   c.S3.PublicBaseURL,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.StorageType)
	}
}

func (c *ServerConfig) buildCache(ctx context.Context, services *Services) (portfoliocms.Cache, error) {
	switch c.CacheType {
	case "memory":
		return cachememory.New(c.CacheTTL, 10*time.Minute), nil
	case "redis":
		cache, err := cacheredis.Dial(ctx, c.CacheURL, "portfoliocms")
		if err != nil {
			return nil, err
		}
		services.closers = append(services.closers, cache.Close)
		return cache, nil
	case "none":
		return portfoliocms.NoopCache{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", c.CacheType)
	}
}
