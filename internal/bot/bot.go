// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"delivery-bot/internal/config"
	"delivery-bot/internal/handler"
	"delivery-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	deliveryHandler *handler.DeliveryHandler
	accountHandler  *handler.AccountHandler
	shopHandler     *handler.ShopHandler
	rankingHandler  *handler.RankingHandler
	adminHandler    *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config          *config.Config
	DeliveryService *service.DeliveryService
	AccountService  *service.AccountService
	ShopService     *service.ShopService
	RankingService  *service.RankingService
	AdminService    *service.AdminService
	StatsService    *service.StatsService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	b.deliveryHandler = handler.NewDeliveryHandler(deps.DeliveryService, deps.AccountService)
	b.accountHandler = handler.NewAccountHandler(deps.AccountService, deps.DeliveryService)
	b.shopHandler = handler.NewShopHandler(deps.ShopService, deps.AccountService)
	b.rankingHandler = handler.NewRankingHandler(deps.RankingService)
	b.adminHandler = handler.NewAdminHandler(deps.AdminService, deps.StatsService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/profile", b.accountHandler.HandleProfile)
	b.bot.Handle("/rename", b.accountHandler.HandleRename)

	// Delivery handlers
	b.bot.Handle("/delivery", b.deliveryHandler.HandleDelivery)
	b.bot.Handle("/cooldown", b.deliveryHandler.HandleCooldown)

	// Shop handler
	b.bot.Handle("/shop", b.shopHandler.HandleShop)

	// Ranking handler
	b.bot.Handle("/top", b.rankingHandler.HandleTop)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_balance", b.adminHandler.HandleAdjustBalance)
	adminGroup.Handle("/admin_grant", b.adminHandler.HandleGrantBuff)
	adminGroup.Handle("/admin_block", b.adminHandler.HandleBlock)
	adminGroup.Handle("/admin_unblock", b.adminHandler.HandleUnblock)
	adminGroup.Handle("/admin_rename", b.adminHandler.HandleRename)
	adminGroup.Handle("/admin_stats", b.adminHandler.HandleStats)

	// Shop button callbacks
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to appropriate handlers.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	data := callback.Data

	// Telebot v3 may add a \f prefix to callback data
	data = strings.TrimPrefix(data, "\f")

	if strings.HasPrefix(data, "shop_") {
		return b.shopHandler.HandleShopCallback(c)
	}

	return nil
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
