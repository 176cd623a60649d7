package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig is the process environment layout read by WithEnv.
type envConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`
	DBSchema    string `env:"DB_SCHEMA"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" env-default:"true"`

	StorageURL      string `env:"STORAGE_URL"`
	UploadDir       string `env:"UPLOAD_DIR" env-default:"./uploads"`
	UploadURLPrefix string `env:"UPLOAD_URL_PREFIX"`

	AWSRegion          string `env:"AWS_REGION" env-default:"us-east-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Endpoint         string `env:"AWS_S3_ENDPOINT"`
	S3UsePathStyle     bool   `env:"AWS_S3_PATH_STYLE"`
	S3PublicBaseURL    string `env:"AWS_S3_PUBLIC_URL"`

	CacheURL string        `env:"CACHE_URL" env-default:"memory"`
	CacheTTL time.Duration `env:"CACHE_TTL" env-default:"30m"`

	VersionRetention int    `env:"VERSION_RETENTION" env-default:"10"`
	MaxUploadBytes   int64  `env:"MAX_UPLOAD_BYTES" env-default:"10485760"`
	ThumbnailSize    uint   `env:"THUMBNAIL_SIZE" env-default:"320"`
	ThumbnailPixels  int    `env:"THUMBNAIL_MAX_PIXELS" env-default:"40000000"`
	PublicBaseURL    string `env:"PUBLIC_BASE_URL"`
	JWTSecret        string `env:"JWT_SECRET"`
}

// WithEnv loads configuration from the process environment.
//
// DATABASE_URL selects the repository: "memory", a postgres:// URL or a
// sqlite:// path. STORAGE_URL selects the blob store: "memory://",
// "file:///dir" or "s3://bucket"; when empty, files go under UPLOAD_DIR.
// CACHE_URL is "memory", "none" or a redis:// URL.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}

		c.Port = env.Port
		c.Environment = env.Environment
		c.LogLevel = env.LogLevel
		c.DBSchema = env.DBSchema
		c.AutoMigrate = env.AutoMigrate
		c.UploadURLPrefix = env.UploadURLPrefix
		c.CacheTTL = env.CacheTTL
		c.VersionRetention = env.VersionRetention
		c.MaxUploadBytes = env.MaxUploadBytes
		c.ThumbnailSize = env.ThumbnailSize
		c.ThumbnailPixels = env.ThumbnailPixels
		c.PublicBaseURL = env.PublicBaseURL
		c.JWTSecret = env.JWTSecret

		if err := applyDatabaseURL(c, env.DatabaseURL); err != nil {
			return err
		}

		c.S3 = S3Config{
			Region:          env.AWSRegion,
			AccessKeyID:     env.AWSAccessKeyID,
			SecretAccessKey: env.AWSSecretAccessKey,
			Endpoint:        env.S3Endpoint,
			UsePathStyle:    env.S3UsePathStyle,
			PublicBaseURL:   env.S3PublicBaseURL,
		}
		if err := applyStorageURL(c, env.StorageURL, env.UploadDir); err != nil {
			return err
		}

		applyCacheURL(c, env.CacheURL)
		return nil
	}
}

func applyDatabaseURL(c *ServerConfig, raw string) error {
	switch {
	case raw == "" || raw == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = raw
	case strings.HasPrefix(raw, "sqlite://"), strings.HasPrefix(raw, "file:"), strings.HasSuffix(raw, ".db"):
		c.DatabaseType = "sqlite"
		c.DatabaseURL = raw
	default:
		return fmt.Errorf("unrecognized DATABASE_URL scheme: %s", raw)
	}
	return nil
}

func applyStorageURL(c *ServerConfig, raw, uploadDir string) error {
	switch raw {
	case "":
		c.StorageType = "fs"
		c.UploadDir = uploadDir
		return nil
	case "memory":
		c.StorageType = "memory"
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	switch u.Scheme {
	case "memory":
		c.StorageType = "memory"
	case "file":
		c.StorageType = "fs"
		c.UploadDir = u.Path
		if c.UploadDir == "" {
			c.UploadDir = uploadDir
		}
	case "s3":
		c.StorageType = "s3"
		c.S3.Bucket = u.Host
	default:
		return fmt.Errorf("unsupported STORAGE_URL scheme: %s", u.Scheme)
	}
	return nil
}

func applyCacheURL(c *ServerConfig, raw string) {
	switch {
	case raw == "" || raw == "memory":
		c.CacheType = "memory"
		c.CacheURL = ""
	case raw == "none":
		c.CacheType = "none"
		c.CacheURL = ""
	default:
		c.CacheType = "redis"
		c.CacheURL = raw
	}
}
