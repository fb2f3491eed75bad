// Package model defines the data models for the courier delivery bot.
package model

import "time"

// User represents a courier account in the delivery economy.
type User struct {
	TelegramID   int64      `db:"telegram_id"`
	Username     string     `db:"username"`
	Deliveries   int64      `db:"deliveries"`
	Money        int64      `db:"money"`
	Experience   int64      `db:"experience"`
	LastDelivery *time.Time `db:"last_delivery"`
	Blocked      bool       `db:"blocked"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// Buff is a time-limited earnings multiplier owned by a user.
// Name and Bonus are snapshotted from the shop item at grant time so that
// later catalog edits never change an already-granted buff.
type Buff struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ItemID    string    `db:"item_id"`
	Name      string    `db:"name"`
	Bonus     float64   `db:"bonus"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Active reports whether the buff still contributes to the multiplier.
// A buff expiring exactly at now is already inactive.
func (b *Buff) Active(now time.Time) bool {
	return b.ExpiresAt.After(now)
}

// ShopItem is a purchasable buff definition. Items are never hard-deleted;
// deactivation hides them from buyers while historical grants stay valid.
type ShopItem struct {
	ID              int64     `db:"id"`
	ItemID          string    `db:"item_id"`
	Name            string    `db:"name"`
	Description     string    `db:"description"`
	Price           int64     `db:"price"`
	Bonus           float64   `db:"bonus"`
	DurationMinutes int       `db:"duration_minutes"`
	Active          bool      `db:"active"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Duration returns the buff lifetime granted by this item.
func (i *ShopItem) Duration() time.Duration {
	return time.Duration(i.DurationMinutes) * time.Minute
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeDelivery    = "delivery"     // Delivery settlement credit
	TxTypeMilestone   = "milestone"    // Experience milestone bonus
	TxTypePurchase    = "purchase"     // Shop buff purchase debit
	TxTypeAdminAdjust = "admin_adjust" // Admin balance adjustment
	TxTypeAdminGrant  = "admin_grant"  // Admin buff grant (no debit)
)

// Stats aggregates the whole economy for the admin dashboard.
type Stats struct {
	TotalUsers      int64
	TotalDeliveries int64
	TotalMoney      int64
	ActiveBuffs     int64
}
