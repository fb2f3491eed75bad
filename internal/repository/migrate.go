package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Migrate creates the database schema. Statements are idempotent so the
// function can run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			deliveries BIGINT NOT NULL DEFAULT 0,
			money BIGINT NOT NULL DEFAULT 0 CHECK (money >= 0),
			experience BIGINT NOT NULL DEFAULT 0,
			last_delivery TIMESTAMPTZ,
			blocked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_deliveries ON users(deliveries DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS shop_items (
			id BIGSERIAL PRIMARY KEY,
			item_id VARCHAR(64) UNIQUE NOT NULL,
			name VARCHAR(128) NOT NULL,
			description VARCHAR(256) NOT NULL DEFAULT '',
			price BIGINT NOT NULL CHECK (price > 0),
			bonus DOUBLE PRECISION NOT NULL CHECK (bonus > 0),
			duration_minutes INT NOT NULL CHECK (duration_minutes > 0),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate shop_items: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS buffs (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			item_id VARCHAR(64) NOT NULL,
			name VARCHAR(128) NOT NULL,
			bonus DOUBLE PRECISION NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_buffs_user_expires ON buffs(user_id, expires_at);
		CREATE INDEX IF NOT EXISTS idx_buffs_expires ON buffs(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate buffs: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate transactions: %w", err)
	}

	log.Info().Msg("Database migrations completed")
	return nil
}

// defaultShopItems is the catalog seeded into an empty database.
type seedItem struct {
	itemID          string
	name            string
	description     string
	price           int64
	bonus           float64
	durationMinutes int
}

var defaultShopItems = []seedItem{
	{"hyper_buff", "Hyper Buff", "Boosts earnings by 50%", 2750, 0.50, 40},
	{"super_buff", "Super Buff", "Boosts earnings by 15%", 850, 0.15, 30},
	{"mega_buff", "Mega Buff", "Boosts earnings by 25%", 1800, 0.25, 30},
	{"ultra_buff", "Ultra Buff", "Boosts earnings by 35%", 2200, 0.35, 35},
}

// SeedShopItems inserts the default catalog when the shop is empty.
func SeedShopItems(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM shop_items`).Scan(&count); err != nil {
		return fmt.Errorf("count shop items: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, it := range defaultShopItems {
		_, err := pool.Exec(ctx, `
			INSERT INTO shop_items (item_id, name, description, price, bonus, duration_minutes, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			ON CONFLICT (item_id) DO NOTHING
		`, it.itemID, it.name, it.description, it.price, it.bonus, it.durationMinutes)
		if err != nil {
			return fmt.Errorf("seed shop item %s: %w", it.itemID, err)
		}
	}

	log.Info().Int("items", len(defaultShopItems)).Msg("Seeded default shop catalog")
	return nil
}
