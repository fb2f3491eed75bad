package handler

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"delivery-bot/internal/model"
)

// Callback data prefixes
const (
	CallbackShopItem    = "shop_item:" // shop_item:<item_id>
	CallbackShopBuy     = "shop_buy:"  // shop_buy:<token>
	CallbackShopCancel  = "shop_cancel:"
	CallbackShopRefresh = "shop_refresh"
)

// BuildShopPanel creates the main shop panel with item buttons.
func BuildShopPanel(items []*model.ShopItem) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	var currentRow []tele.Btn
	for i, item := range items {
		btn := markup.Data(
			fmt.Sprintf("⚡ %s (%d💰)", item.Name, item.Price),
			CallbackShopItem+item.ItemID,
		)
		currentRow = append(currentRow, btn)

		// 2 buttons per row
		if len(currentRow) == 2 || i == len(items)-1 {
			rows = append(rows, markup.Row(currentRow...))
			currentRow = nil
		}
	}

	refreshBtn := markup.Data("🔄 Refresh", CallbackShopRefresh)
	rows = append(rows, markup.Row(refreshBtn))

	markup.Inline(rows...)
	return markup
}

// BuildConfirmPanel creates the purchase confirmation panel for a pending
// purchase token.
func BuildConfirmPanel(token string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	buyBtn := markup.Data("✅ Confirm", CallbackShopBuy+token)
	cancelBtn := markup.Data("❌ Cancel", CallbackShopCancel+token)

	markup.Inline(
		markup.Row(buyBtn, cancelBtn),
	)
	return markup
}

// FormatShopMessage creates the shop panel header.
func FormatShopMessage(balance int64) string {
	msg := "🏪 Buff Shop\n"
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("💰 Your balance: %d coins\n", balance)
	msg += "━━━━━━━━━━━━━━━\n"
	msg += "Tap a buff below to see details:"
	return msg
}

// FormatItemDetail creates the confirmation message for one item.
func FormatItemDetail(item *model.ShopItem, balance int64) string {
	msg := fmt.Sprintf("⚡ %s\n", item.Name)
	msg += "━━━━━━━━━━━━━━━\n"
	if item.Description != "" {
		msg += item.Description + "\n"
	}
	msg += fmt.Sprintf("💰 Price: %d coins\n", item.Price)
	msg += fmt.Sprintf("📈 Bonus: +%.0f%% earnings\n", item.Bonus*100)
	msg += fmt.Sprintf("⏱️ Duration: %s\n", FormatDuration(item.Duration()))
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("Your balance: %d coins", balance)
	return msg
}

// FormatDuration renders a duration as "1h 30m" / "45m" / "30s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
