// Package main is the entry point for the courier delivery bot.
package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"delivery-bot/internal/bot"
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

	log.Info().Msg("Configuration loaded successfully")

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

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	buffRepo := repository.NewBuffRepository(dbPool.Pool)
	shopRepo := repository.NewShopRepository(dbPool.Pool)
	economyRepo := repository.NewEconomyRepository(dbPool.Pool)

	// Initialize user lock
	userLock := lock.NewUserLock()

	// Initialize services
	policy, err := service.PolicyFromConfig(&cfg.Delivery)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid earnings configuration")
	}

	deliveryService := service.NewDeliveryService(
		userRepo, buffRepo, economyRepo, userLock,
		&cfg.Delivery, policy, service.NewRand(randomSeed(), randomSeed()),
	)
	accountService := service.NewAccountService(userRepo, buffRepo, userLock, cfg.Delivery.Cooldown())
	shopService := service.NewShopService(shopRepo, userRepo, economyRepo, userLock, cfg.Shop.PendingTTL)
	rankingService := service.NewRankingService(userRepo)
	statsService := service.NewStatsService(userRepo, buffRepo)
	adminService := service.NewAdminService(
		userRepo, buffRepo, shopRepo, economyRepo,
		repository.NewTransactionRepository(dbPool.Pool), userLock,
	)

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:          cfg,
		DeliveryService: deliveryService,
		AccountService:  accountService,
		ShopService:     shopService,
		RankingService:  rankingService,
		AdminService:    adminService,
		StatsService:    statsService,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Drop stale pending purchases periodically
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				shopService.PrunePending(now)
			}
		}
	}()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

func randomSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}
