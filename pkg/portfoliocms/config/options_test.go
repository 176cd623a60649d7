package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.DatabaseType != "memory" || cfg.StorageType != "memory" || cfg.CacheType != "memory" {
		t.Errorf("expected in-memory defaults, got db=%s storage=%s cache=%s", cfg.DatabaseType, cfg.StorageType, cfg.CacheType)
	}
	if cfg.VersionRetention != 10 {
		t.Errorf("expected retention 10, got %d", cfg.VersionRetention)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Errorf("expected cache ttl 30m, got %s", cfg.CacheTTL)
	}
}

func TestWithPort(t *testing.T) {
	cfg, err := Load(WithPort("9090"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got: %s", cfg.Port)
	}
}

func TestWithPortEmpty(t *testing.T) {
	_, err := Load(WithPort(""))
	if err == nil {
		t.Error("expected error for empty port, got nil")
	}
}

func TestWithEnvironment(t *testing.T) {
	cfg, err := Load(WithEnvironment("production"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected environment production, got: %s", cfg.Environment)
	}

	if _, err := Load(WithEnvironment("staging")); err == nil {
		t.Error("expected error for unknown environment, got nil")
	}
}

func TestWithDatabase(t *testing.T) {
	tests := []struct {
		name      string
		dbType    string
		url       string
		wantError bool
	}{
		{"memory", "memory", "", false},
		{"postgres", "postgres", "postgres://localhost/cms", false},
		{"postgres without url", "postgres", "", true},
		{"sqlite", "sqlite", "cms.db", false},
		{"unknown", "mysql", "mysql://localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(WithDatabase(tt.dbType, tt.url))
			if tt.wantError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.DatabaseType != tt.dbType {
				t.Errorf("expected database type %q, got %q", tt.dbType, cfg.DatabaseType)
			}
		})
	}
}

func TestWithS3StorageRequiresBucket(t *testing.T) {
	if _, err := Load(WithS3Storage(S3Config{})); err == nil {
		t.Error("expected error for missing bucket, got nil")
	}

	cfg, err := Load(WithS3Storage(S3Config{Bucket: "assets"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.S3.Region != "us-east-1" {
		t.Errorf("expected default region, got %q", cfg.S3.Region)
	}
}

func TestValidateRejectsBadLimits(t *testing.T) {
	if _, err := Load(WithVersionRetention(0)); err == nil {
		t.Error("expected error for zero retention, got nil")
	}
	if _, err := Load(WithMaxUploadBytes(0)); err == nil {
		t.Error("expected error for zero upload limit, got nil")
	}
	if _, err := Load(WithCache("redis", "")); err == nil {
		t.Error("expected error for redis without url, got nil")
	}
	if _, err := Load(WithLogLevel("verbose")); err == nil {
		t.Error("expected error for unknown log level, got nil")
	}
}

func TestWithDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PORTFOLIO_DOTENV_PROBE=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PORTFOLIO_DOTENV_PROBE") })

	if _, err := Load(WithDotEnv(path, filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("PORTFOLIO_DOTENV_PROBE"); got != "loaded" {
		t.Errorf("expected variable from .env, got %q", got)
	}
}

func TestBuildServiceInMemory(t *testing.T) {
	cfg, err := Load(WithCache("none", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	services, err := cfg.BuildService(context.Background(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer services.Close()

	content, err := services.Content.GetStructuredContent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Footer.Links.Site == nil {
		t.Error("expected normalized footer links")
	}
}

func TestBuildServiceSQLite(t *testing.T) {
	cfg, err := Load(
		WithDatabase("sqlite", filepath.Join(t.TempDir(), "cms.db")),
		WithFilesystemStorage(t.TempDir(), ""),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	services, err := cfg.BuildService(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer services.Close()

	if _, err := services.Content.CreateEmergencyBackup(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	versions, err := services.Content.ListVersions(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("expected 1 version, got %d", len(versions))
	}
}
