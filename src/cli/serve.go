package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Kuroukai/Kuroukai-free-api/src/config"
	"github.com/Kuroukai/Kuroukai-free-api/src/handlers"
	"github.com/Kuroukai/Kuroukai-free-api/src/middleware"
	"github.com/Kuroukai/Kuroukai-free-api/src/services"
)

func newServeCmd(opts *options, version string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, port, version)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (overrides PORT)")

	return cmd
}

func runServe(ctx context.Context, opts *options, port int, version string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Port = port
	}

	logFile := setupLogging(cfg)
	defer logFile.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.Version = version

	log.Info().
		Str("version", version).
		Int("port", cfg.Port).
		Str("env", cfg.Env).
		Str("log_level", cfg.LogLevel).
		Msg("starting server")

	repo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.UsesPostgres() {
		log.Info().Str("driver", "postgres").Msg("database connected")
	} else {
		log.Info().Str("driver", "sqlite").Str("path", cfg.DatabasePath).Msg("database connected")
	}

	keys := newKeyService(cfg, repo)
	sessions := services.NewSessionManager(cfg.SessionTTL, services.SystemClock())
	gate := services.NewAdminAuthGate(cfg.AdminCredentials(), sessions)

	router, stopLimiters := handlers.NewRouter(routerConfig(cfg, keys, gate))
	defer stopLimiters()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		log.Info().Msg("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
		return err
	}

	log.Info().Int("sessions_dropped", sessions.Count()).Msg("server shut down successfully")
	return nil
}

// routerConfig maps the loaded configuration onto the HTTP layer.
// Session cookies are marked Secure in production.
func routerConfig(cfg *config.Config, keys *services.KeyService, gate *services.AdminAuthGate) handlers.RouterConfig {
	return handlers.RouterConfig{
		Keys:         keys,
		Gate:         gate,
		Env:          cfg.Env,
		SecureCookie: cfg.IsProduction(),
		CORSOrigin:   cfg.CORSOrigin,
		RateLimit: middleware.RateLimitConfig{
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
	}
}
