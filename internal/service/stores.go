// Package service implements the buff and earnings engine: delivery cooldown
// gating, stacked-multiplier settlement, buff purchase and administrative
// economy mutation. Services consume storage through the narrow contracts
// below; internal/repository provides the PostgreSQL implementations.
package service

import (
	"context"
	"time"

	"delivery-bot/internal/model"
	"delivery-bot/internal/repository"
)

// UserStore is the user-resolution capability: return-or-create accounts and
// read/mutate their non-economic fields.
type UserStore interface {
	GetOrCreate(ctx context.Context, telegramID int64, username string) (*model.User, bool, error)
	GetByID(ctx context.Context, telegramID int64) (*model.User, error)
	UpdateUsername(ctx context.Context, telegramID int64, username string) error
	SetBlocked(ctx context.Context, telegramID int64, blocked bool) (*model.User, error)
	GetTopByDeliveries(ctx context.Context, limit int) ([]*model.User, error)
	List(ctx context.Context, offset, limit int) ([]*model.User, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, telegramID int64) error
	Totals(ctx context.Context) (users, deliveries, money int64, err error)
}

// BuffStore is the grant-read capability. All queries filter strictly by
// expires_at > now; expired grants are inert whether or not they are pruned.
type BuffStore interface {
	ActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*model.Buff, error)
	SumActiveBonus(ctx context.Context, userID int64, now time.Time) (float64, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)
	PruneExpired(ctx context.Context, before time.Time) (int64, error)
}

// Catalog is the catalog-read/write capability over purchasable buff
// definitions.
type Catalog interface {
	ListActive(ctx context.Context) ([]*model.ShopItem, error)
	ListAll(ctx context.Context) ([]*model.ShopItem, error)
	GetActive(ctx context.Context, itemID string) (*model.ShopItem, error)
	Get(ctx context.Context, itemID string) (*model.ShopItem, error)
	Create(ctx context.Context, itemID, name, description string, price int64, bonus float64, durationMinutes int) (*model.ShopItem, error)
	Update(ctx context.Context, itemID, name, description string, price int64, bonus float64, durationMinutes int) (*model.ShopItem, error)
	SetActive(ctx context.Context, itemID string, active bool) error
}

// TxLog reads the append-only economy audit trail.
type TxLog interface {
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error)
}

// Ledger is the atomic-mutation capability: each call commits fully or not
// at all.
type Ledger interface {
	SettleDelivery(ctx context.Context, userID int64, s repository.Settlement) (*model.User, error)
	PurchaseBuff(ctx context.Context, userID int64, item *model.ShopItem, expiresAt time.Time) (*model.Buff, error)
	GrantBuff(ctx context.Context, userID int64, item *model.ShopItem, expiresAt time.Time) (*model.Buff, error)
	AdjustBalance(ctx context.Context, userID int64, delta int64) (*model.User, bool, error)
}
