// Package main is the entry point for the admin REST API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"delivery-bot/internal/adminweb"
	"delivery-bot/internal/config"
	"delivery-bot/internal/pkg/db"
	"delivery-bot/internal/pkg/lock"
	"delivery-bot/internal/repository"
	"delivery-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Admin.APIToken == "" {
		log.Fatal().Msg("admin.api_token is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations and seed the default catalog
	if err := repository.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	if err := repository.SeedShopItems(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed shop items")
	}

	// Initialize repositories and services
	userRepo := repository.NewUserRepository(dbPool.Pool)
	buffRepo := repository.NewBuffRepository(dbPool.Pool)
	shopRepo := repository.NewShopRepository(dbPool.Pool)
	economyRepo := repository.NewEconomyRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)

	userLock := lock.NewUserLock()

	adminService := service.NewAdminService(userRepo, buffRepo, shopRepo, economyRepo, txRepo, userLock)
	statsService := service.NewStatsService(userRepo, buffRepo)

	server := adminweb.New(
		cfg.Admin.ListenAddr, cfg.Admin.APIToken,
		adminService, statsService, shopRepo, dbPool,
	)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Admin.ListenAddr).Msg("Admin API is starting...")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Admin API server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Admin API shutdown failed")
	}
	log.Info().Msg("Admin API stopped gracefully")
}
