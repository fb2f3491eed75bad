package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"delivery-bot/internal/service"
)

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accountService  *service.AccountService
	deliveryService *service.DeliveryService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService, deliveryService *service.DeliveryService) *AccountHandler {
	return &AccountHandler{
		accountService:  accountService,
		deliveryService: deliveryService,
	}
}

// HandleStart handles the /start command.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, created, err := h.accountService.EnsureUser(ctx, sender.ID, senderName(sender))
	if err != nil {
		return c.Reply("❌ Failed to create account, please try again later")
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎉 Welcome, %s!\n\n"+
				"Your courier account is ready.\n\n"+
				"Commands:\n"+
				"/delivery - make a delivery\n"+
				"/profile - your profile\n"+
				"/shop - buy earnings buffs\n"+
				"/top - leaderboard\n"+
				"/rename <name> - change your name",
			user.Username,
		))
	}

	return c.Reply(fmt.Sprintf(
		"👋 Welcome back, %s!\n\n💰 Balance: %d coins",
		user.Username, user.Money,
	))
}

// HandleProfile handles the /profile command.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	now := time.Now()
	profile, err := h.accountService.Profile(ctx, sender.ID, senderName(sender), now)
	if err != nil {
		return c.Reply("❌ Failed to load profile, please try again later")
	}

	u := profile.User
	msg := fmt.Sprintf(
		"👤 %s\n"+
			"━━━━━━━━━━━━━━━\n"+
			"📦 Deliveries: %d\n"+
			"💰 Balance: %d coins\n"+
			"⭐ Experience: %d\n",
		u.Username, u.Deliveries, u.Money, u.Experience,
	)

	if len(profile.ActiveBuffs) > 0 {
		msg += fmt.Sprintf("\n⚡ Active buffs (+%.0f%%):\n", profile.Multiplier*100)
		for _, b := range profile.ActiveBuffs {
			msg += fmt.Sprintf("  • %s +%.0f%%, %s left\n",
				b.Name, b.Bonus*100, FormatDuration(b.ExpiresAt.Sub(now)))
		}
	}

	if profile.CooldownRemaining > 0 {
		msg += fmt.Sprintf("\n⏳ Next delivery in %s", FormatDuration(profile.CooldownRemaining))
	} else if !u.Blocked {
		msg += "\n✅ Delivery ready"
	}

	return c.Reply(msg)
}

// HandleRename handles the /rename command.
func (h *AccountHandler) HandleRename(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	name := strings.TrimSpace(strings.Join(c.Args(), " "))
	if name == "" {
		return c.Reply("Usage: /rename <new name>")
	}

	user, err := h.accountService.Rename(ctx, sender.ID, name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNameTooLong):
			return c.Reply(fmt.Sprintf("❌ Name too long, %d characters max", service.MaxUsernameLength))
		case errors.Is(err, service.ErrInvalidName):
			return c.Reply("❌ Name cannot be empty")
		default:
			return c.Reply("❌ Rename failed, please try again later")
		}
	}

	return c.Reply(fmt.Sprintf("✅ You are now known as %s", user.Username))
}
