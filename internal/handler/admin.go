package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"delivery-bot/internal/repository"
	"delivery-bot/internal/service"
)

// AdminHandler handles admin-related commands.
type AdminHandler struct {
	adminService *service.AdminService
	statsService *service.StatsService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *service.AdminService, statsService *service.StatsService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		statsService: statsService,
	}
}

// HandleAdjustBalance handles the /admin_balance command.
// Format: /admin_balance <user_id> <delta>
func (h *AdminHandler) HandleAdjustBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 2 {
		return c.Reply("Usage: /admin_balance <user_id> <delta>")
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ Invalid user ID")
	}
	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return c.Reply("❌ Invalid amount")
	}

	res, err := h.adminService.Apply(ctx, service.Op{
		Kind:   service.OpAdjustBalance,
		UserID: targetID,
		Amount: delta,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ User not found")
		}
		return c.Reply("❌ Operation failed")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Int64("delta", delta).
		Msg("Admin balance adjustment")

	msg := fmt.Sprintf(
		"✅ Balance updated\n\n👤 %s (ID: %d)\n💰 Balance: %d coins",
		res.User.Username, targetID, res.User.Money,
	)
	if res.Clamped {
		msg += "\n⚠️ Deduction clamped at zero"
	}
	return c.Reply(msg)
}

// HandleGrantBuff handles the /admin_grant command.
// Format: /admin_grant <user_id> <item_id>
func (h *AdminHandler) HandleGrantBuff(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 2 {
		return c.Reply("Usage: /admin_grant <user_id> <item_id>")
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ Invalid user ID")
	}

	res, err := h.adminService.Apply(ctx, service.Op{
		Kind:   service.OpGrantBuff,
		UserID: targetID,
		ItemID: args[1],
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return c.Reply("❌ User not found")
		case errors.Is(err, repository.ErrItemNotFound):
			return c.Reply("❌ Item not found")
		}
		return c.Reply("❌ Operation failed")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Str("item_id", args[1]).
		Msg("Admin buff grant")

	return c.Reply(fmt.Sprintf(
		"✅ Granted %s (+%.0f%%) to %s, expires %s",
		res.Buff.Name, res.Buff.Bonus*100, res.User.Username,
		FormatDuration(time.Until(res.Buff.ExpiresAt)),
	))
}

// HandleBlock handles the /admin_block command.
// Format: /admin_block <user_id>
func (h *AdminHandler) HandleBlock(c tele.Context) error {
	return h.setBlocked(c, true)
}

// HandleUnblock handles the /admin_unblock command.
// Format: /admin_unblock <user_id>
func (h *AdminHandler) HandleUnblock(c tele.Context) error {
	return h.setBlocked(c, false)
}

func (h *AdminHandler) setBlocked(c tele.Context, blocked bool) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 1 {
		if blocked {
			return c.Reply("Usage: /admin_block <user_id>")
		}
		return c.Reply("Usage: /admin_unblock <user_id>")
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ Invalid user ID")
	}

	res, err := h.adminService.Apply(ctx, service.Op{
		Kind:    service.OpSetBlocked,
		UserID:  targetID,
		Blocked: blocked,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ User not found")
		}
		return c.Reply("❌ Operation failed")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Bool("blocked", blocked).
		Msg("Admin block change")

	if blocked {
		return c.Reply(fmt.Sprintf("🚫 %s is now blocked", res.User.Username))
	}
	return c.Reply(fmt.Sprintf("✅ %s is unblocked", res.User.Username))
}

// HandleRename handles the /admin_rename command.
// Format: /admin_rename <user_id> <new name>
func (h *AdminHandler) HandleRename(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Usage: /admin_rename <user_id> <new name>")
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ Invalid user ID")
	}
	name := strings.Join(args[1:], " ")

	res, err := h.adminService.Apply(ctx, service.Op{
		Kind:   service.OpRename,
		UserID: targetID,
		Name:   name,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return c.Reply("❌ User not found")
		case errors.Is(err, service.ErrNameTooLong):
			return c.Reply(fmt.Sprintf("❌ Name too long, %d characters max", service.MaxUsernameLength))
		case errors.Is(err, service.ErrInvalidName):
			return c.Reply("❌ Name cannot be empty")
		}
		return c.Reply("❌ Operation failed")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Str("name", name).
		Msg("Admin rename")

	return c.Reply(fmt.Sprintf("✅ User %d is now known as %s", targetID, res.User.Username))
}

// HandleStats handles the /admin_stats command.
func (h *AdminHandler) HandleStats(c tele.Context) error {
	ctx := context.Background()

	stats, err := h.statsService.Overview(ctx, time.Now())
	if err != nil {
		return c.Reply("❌ Failed to load stats")
	}

	return c.Reply(fmt.Sprintf(
		"📊 Global stats\n"+
			"━━━━━━━━━━━━━━━\n"+
			"👥 Users: %d\n"+
			"📦 Deliveries: %d\n"+
			"💰 Total coins: %d\n"+
			"⚡ Active buffs: %d",
		stats.TotalUsers, stats.TotalDeliveries, stats.TotalMoney, stats.ActiveBuffs,
	))
}
