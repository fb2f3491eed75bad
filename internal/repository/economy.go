package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-bot/internal/model"
)

// EconomyRepository owns the multi-table mutations that must commit as one
// unit: delivery settlement, buff purchase, admin grant and balance adjust.
// Every method either fully applies or fully rejects; no partial state is
// ever visible to other connections.
type EconomyRepository struct {
	pool *pgxpool.Pool
}

// NewEconomyRepository creates a new EconomyRepository instance.
func NewEconomyRepository(pool *pgxpool.Pool) *EconomyRepository {
	return &EconomyRepository{pool: pool}
}

// Settlement describes the full effect of one successful delivery.
type Settlement struct {
	Deliveries     int64
	Earnings       int64 // buffed earnings credited to the balance
	MilestoneBonus int64 // extra credit for crossing an experience milestone
	ExpGain        int64
	Now            time.Time
}

// SettleDelivery applies a delivery's effects to the user's ledger row and
// records the audit transactions, in a single database transaction.
func (r *EconomyRepository) SettleDelivery(ctx context.Context, userID int64, s Settlement) (*model.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE users
		SET deliveries = deliveries + $2,
		    money = money + $3,
		    experience = experience + $4,
		    last_delivery = $5,
		    updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(tx.QueryRow(ctx, query, userID, s.Deliveries, s.Earnings+s.MilestoneBonus, s.ExpGain, s.Now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to settle delivery: %w", mapConflict(err))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (user_id, amount, type) VALUES ($1, $2, $3)
	`, userID, s.Earnings, model.TxTypeDelivery)
	if err != nil {
		return nil, fmt.Errorf("failed to record delivery transaction: %w", err)
	}

	if s.MilestoneBonus > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO transactions (user_id, amount, type) VALUES ($1, $2, $3)
		`, userID, s.MilestoneBonus, model.TxTypeMilestone)
		if err != nil {
			return nil, fmt.Errorf("failed to record milestone transaction: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", mapConflict(err))
	}
	return user, nil
}

// PurchaseBuff atomically debits the item price and inserts the snapshot
// grant. The conditional debit doubles as the funds check, so a concurrent
// spend can never drive the balance negative.
func (r *EconomyRepository) PurchaseBuff(ctx context.Context, userID int64, item *model.ShopItem, expiresAt time.Time) (*model.Buff, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin purchase: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE users
		SET money = money - $2, updated_at = NOW()
		WHERE telegram_id = $1 AND money >= $2
	`, userID, item.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to debit purchase: %w", mapConflict(err))
	}
	if result.RowsAffected() == 0 {
		// Distinguish a missing user from an underfunded one.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE telegram_id = $1)`, userID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check user existence: %w", err)
		}
		if !exists {
			return nil, ErrUserNotFound
		}
		return nil, ErrInsufficientFunds
	}

	grantQuery := `
		INSERT INTO buffs (user_id, item_id, name, bonus, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + buffColumns

	buff, err := scanBuff(tx.QueryRow(ctx, grantQuery, userID, item.ItemID, item.Name, item.Bonus, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert grant: %w", err)
	}

	desc := "Purchased " + item.Name
	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (user_id, amount, type, description) VALUES ($1, $2, $3, $4)
	`, userID, -item.Price, model.TxTypePurchase, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to record purchase transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase: %w", mapConflict(err))
	}
	return buff, nil
}

// GrantBuff inserts a grant without a price debit, recording a zero-amount
// audit entry. Used by trusted operators.
func (r *EconomyRepository) GrantBuff(ctx context.Context, userID int64, item *model.ShopItem, expiresAt time.Time) (*model.Buff, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin grant: %w", err)
	}
	defer tx.Rollback(ctx)

	grantQuery := `
		INSERT INTO buffs (user_id, item_id, name, bonus, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + buffColumns

	buff, err := scanBuff(tx.QueryRow(ctx, grantQuery, userID, item.ItemID, item.Name, item.Bonus, expiresAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to insert grant: %w", err)
	}

	desc := "Granted " + item.Name
	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (user_id, amount, type, description) VALUES ($1, 0, $2, $3)
	`, userID, model.TxTypeAdminGrant, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to record grant transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit grant: %w", mapConflict(err))
	}
	return buff, nil
}

// AdjustBalance adds delta to the user's balance under a row lock. A negative
// delta never drives the balance below zero: the deduction clamps at zero and
// the clamp is reported to the caller.
func (r *EconomyRepository) AdjustBalance(ctx context.Context, userID int64, delta int64) (*model.User, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin adjust: %w", err)
	}
	defer tx.Rollback(ctx)

	var money int64
	err = tx.QueryRow(ctx, `
		SELECT money FROM users WHERE telegram_id = $1 FOR UPDATE
	`, userID).Scan(&money)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, fmt.Errorf("failed to lock user row: %w", mapConflict(err))
	}

	applied := delta
	clamped := false
	if money+delta < 0 {
		applied = -money
		clamped = true
	}

	query := `
		UPDATE users
		SET money = money + $2, updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(tx.QueryRow(ctx, query, userID, applied))
	if err != nil {
		return nil, false, fmt.Errorf("failed to adjust balance: %w", mapConflict(err))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (user_id, amount, type) VALUES ($1, $2, $3)
	`, userID, applied, model.TxTypeAdminAdjust)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record adjust transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit adjust: %w", mapConflict(err))
	}
	return user, clamped, nil
}
