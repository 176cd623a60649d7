package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/api"
	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand creates the portfolio-cms command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "portfolio-cms",
		Short: "Portfolio homepage content service",
		Long: `Portfolio homepage content service.

Serves the homepage content API and manages content versions. Configuration
is read from the environment (DATABASE_URL, STORAGE_URL, CACHE_URL, ...) and
optionally from a .env file.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewVersionsCommand())
	rootCmd.AddCommand(NewContentCommand())

	return rootCmd
}

// loadConfig reads configuration for a command and builds its logger.
func loadConfig(cmd *cobra.Command) (*config.ServerConfig, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	verbose, _ := cmd.Flags().GetBool("verbose")

	opts := []config.Option{config.WithDotEnv(envFile), config.WithEnv()}
	if verbose {
		opts = append(opts, config.WithLogLevel("debug"))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			services, err := cfg.BuildService(ctx, logger)
			if err != nil {
				return fmt.Errorf("failed to build service: %w", err)
			}
			defer services.Close()

			server := api.NewServer(services.Content, services.Media,
				api.WithLogger(logger),
				api.WithErrorDetail(!cfg.IsProduction()),
				api.WithJWTSecret(cfg.JWTSecret),
				api.WithMaxUploadBytes(cfg.MaxUploadBytes),
			)

			httpServer := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           server.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       2 * time.Minute,
				WriteTimeout:      2 * time.Minute,
				IdleTimeout:       2 * time.Minute,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("portfolio cms starting",
					"port", cfg.Port,
					"environment", cfg.Environment,
					"database", cfg.DatabaseType,
					"storage", cfg.StorageType,
					"cache", cfg.CacheType,
					"auth", cfg.JWTSecret != "",
				)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			logger.Info("server exited")
			return nil
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
	return cmd
}
