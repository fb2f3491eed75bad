package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"delivery-bot/internal/repository"
	"delivery-bot/internal/service"
)

// ShopHandler handles shop commands and purchase confirmation callbacks.
type ShopHandler struct {
	shopService    *service.ShopService
	accountService *service.AccountService
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(shopService *service.ShopService, accountService *service.AccountService) *ShopHandler {
	return &ShopHandler{
		shopService:    shopService,
		accountService: accountService,
	}
}

// HandleShop handles the /shop command.
func (h *ShopHandler) HandleShop(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, _, err := h.accountService.EnsureUser(ctx, sender.ID, senderName(sender))
	if err != nil {
		return c.Reply("❌ Shop unavailable, please try again later")
	}

	items, err := h.shopService.ListItems(ctx)
	if err != nil {
		return c.Reply("❌ Shop unavailable, please try again later")
	}
	if len(items) == 0 {
		return c.Reply("🏪 The shop is empty right now")
	}

	return c.Send(FormatShopMessage(user.Money), BuildShopPanel(items))
}

// HandleShopCallback handles shop button callbacks.
func (h *ShopHandler) HandleShopCallback(c tele.Context) error {
	ctx := context.Background()
	callback := c.Callback()
	sender := c.Sender()
	if callback == nil || sender == nil {
		return nil
	}

	data := strings.TrimPrefix(callback.Data, "\f")

	switch {
	case data == CallbackShopRefresh:
		return h.refreshPanel(ctx, c, sender)

	case strings.HasPrefix(data, CallbackShopItem):
		return h.offerItem(ctx, c, sender, strings.TrimPrefix(data, CallbackShopItem))

	case strings.HasPrefix(data, CallbackShopBuy):
		return h.confirmPurchase(ctx, c, sender, strings.TrimPrefix(data, CallbackShopBuy))

	case strings.HasPrefix(data, CallbackShopCancel):
		return h.cancelPurchase(ctx, c, sender, strings.TrimPrefix(data, CallbackShopCancel))
	}

	return nil
}

func (h *ShopHandler) refreshPanel(ctx context.Context, c tele.Context, sender *tele.User) error {
	user, _, err := h.accountService.EnsureUser(ctx, sender.ID, senderName(sender))
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Shop unavailable", ShowAlert: true})
	}
	items, err := h.shopService.ListItems(ctx)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Shop unavailable", ShowAlert: true})
	}
	return c.Edit(FormatShopMessage(user.Money), BuildShopPanel(items))
}

// offerItem starts a pending purchase and shows the confirmation panel.
func (h *ShopHandler) offerItem(ctx context.Context, c tele.Context, sender *tele.User, itemID string) error {
	pending, err := h.shopService.BeginPurchase(ctx, sender.ID, senderName(sender), itemID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrItemNotFound):
			return c.Respond(&tele.CallbackResponse{Text: "❌ Item not available", ShowAlert: true})
		case errors.Is(err, repository.ErrInsufficientFunds):
			return c.Respond(&tele.CallbackResponse{Text: "❌ Not enough coins!", ShowAlert: true})
		case errors.Is(err, service.ErrBlocked):
			return c.Respond(&tele.CallbackResponse{Text: "🚫 Your account is blocked", ShowAlert: true})
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Str("item", itemID).Msg("Begin purchase failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Purchase failed", ShowAlert: true})
	}

	user, _, err := h.accountService.EnsureUser(ctx, sender.ID, senderName(sender))
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Purchase failed", ShowAlert: true})
	}

	return c.Edit(
		FormatItemDetail(pending.Item, user.Money),
		BuildConfirmPanel(pending.Token.String()),
	)
}

func (h *ShopHandler) confirmPurchase(ctx context.Context, c tele.Context, sender *tele.User, rawToken string) error {
	token, err := uuid.Parse(rawToken)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Invalid purchase token", ShowAlert: true})
	}

	buff, err := h.shopService.ConfirmPurchase(ctx, sender.ID, token, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPendingNotFound), errors.Is(err, service.ErrPendingExpired):
			return c.Respond(&tele.CallbackResponse{Text: "⏳ Offer expired, open the shop again", ShowAlert: true})
		case errors.Is(err, repository.ErrInsufficientFunds):
			return c.Respond(&tele.CallbackResponse{Text: "❌ Not enough coins!", ShowAlert: true})
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Confirm purchase failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Purchase failed", ShowAlert: true})
	}

	_ = c.Respond(&tele.CallbackResponse{Text: "✅ Purchased!"})
	return h.refreshAfterPurchase(ctx, c, sender, buff.Name, buff.ExpiresAt)
}

func (h *ShopHandler) refreshAfterPurchase(ctx context.Context, c tele.Context, sender *tele.User, name string, expiresAt time.Time) error {
	user, _, err := h.accountService.EnsureUser(ctx, sender.ID, senderName(sender))
	if err != nil {
		return nil
	}
	items, err := h.shopService.ListItems(ctx)
	if err != nil {
		return nil
	}

	msg := "✅ " + name + " is now active, " + FormatDuration(time.Until(expiresAt)) + " left\n\n"
	msg += FormatShopMessage(user.Money)
	return c.Edit(msg, BuildShopPanel(items))
}

func (h *ShopHandler) cancelPurchase(ctx context.Context, c tele.Context, sender *tele.User, rawToken string) error {
	if token, err := uuid.Parse(rawToken); err == nil {
		h.shopService.CancelPurchase(token)
	}
	return h.refreshPanel(ctx, c, sender)
}
