// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"delivery-bot/internal/service"
)

// DeliveryHandler handles the delivery command, the core earn action.
type DeliveryHandler struct {
	deliveryService *service.DeliveryService
	accountService  *service.AccountService
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(deliveryService *service.DeliveryService, accountService *service.AccountService) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: deliveryService,
		accountService:  accountService,
	}
}

// HandleDelivery handles the /delivery command.
func (h *DeliveryHandler) HandleDelivery(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	result, err := h.deliveryService.AttemptDelivery(ctx, sender.ID, senderName(sender), time.Now())
	if err != nil {
		if ce, ok := service.AsCooldown(err); ok {
			return c.Reply(fmt.Sprintf(
				"⏳ Too soon! Next delivery in %s",
				FormatDuration(ce.Remaining),
			))
		}
		if errors.Is(err, service.ErrBlocked) {
			return c.Reply("🚫 Your account is blocked")
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Delivery failed")
		return c.Reply("❌ Delivery failed, please try again later")
	}

	msg := fmt.Sprintf(
		"📦 Delivery complete!\n\n"+
			"Deliveries: %d\n"+
			"Earned: %d coins",
		result.Deliveries, result.BuffedEarnings,
	)
	if result.Multiplier > 0 {
		msg += fmt.Sprintf(" (base %d, +%.0f%% buffs)", result.BaseEarnings, result.Multiplier*100)
	}
	if result.MilestoneBonus > 0 {
		msg += fmt.Sprintf("\n🎉 Level milestone! Bonus: %d coins", result.MilestoneBonus)
	}
	msg += fmt.Sprintf("\n\n💰 Balance: %d coins", result.User.Money)

	return c.Reply(msg)
}

// HandleCooldown handles the /cooldown command.
func (h *DeliveryHandler) HandleCooldown(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ok, remaining, err := h.deliveryService.CanDeliver(ctx, sender.ID, time.Now())
	if err != nil {
		return c.Reply("❌ Failed to check cooldown, please try again later")
	}

	if ok {
		return c.Reply("✅ Ready! Use /delivery to go")
	}
	if remaining == 0 {
		return c.Reply("🚫 Your account is blocked")
	}
	return c.Reply(fmt.Sprintf("⏳ Next delivery in %s", FormatDuration(remaining)))
}

// senderName picks a display name for first contact, falling back to the
// first name when the Telegram username is unset.
func senderName(sender *tele.User) string {
	if sender.Username != "" {
		return sender.Username
	}
	return sender.FirstName
}
