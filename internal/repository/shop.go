package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-bot/internal/model"
)

const shopColumns = `id, item_id, name, description, price, bonus, duration_minutes, active, created_at, updated_at`

// ShopRepository handles the buff catalog. Items are soft-deleted only:
// deactivation hides them from buyers, grant history stays intact.
type ShopRepository struct {
	pool *pgxpool.Pool
}

// NewShopRepository creates a new ShopRepository instance.
func NewShopRepository(pool *pgxpool.Pool) *ShopRepository {
	return &ShopRepository{pool: pool}
}

func scanShopItem(row pgx.Row) (*model.ShopItem, error) {
	var it model.ShopItem
	err := row.Scan(
		&it.ID,
		&it.ItemID,
		&it.Name,
		&it.Description,
		&it.Price,
		&it.Bonus,
		&it.DurationMinutes,
		&it.Active,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ListActive returns the catalog visible to buyers, cheapest first.
func (r *ShopRepository) ListActive(ctx context.Context) ([]*model.ShopItem, error) {
	query := `SELECT ` + shopColumns + ` FROM shop_items WHERE active ORDER BY price ASC`
	return r.list(ctx, query)
}

// ListAll returns the full catalog, including deactivated items, for admins.
func (r *ShopRepository) ListAll(ctx context.Context) ([]*model.ShopItem, error) {
	query := `SELECT ` + shopColumns + ` FROM shop_items ORDER BY price ASC`
	return r.list(ctx, query)
}

func (r *ShopRepository) list(ctx context.Context, query string) ([]*model.ShopItem, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list shop items: %w", err)
	}
	defer rows.Close()

	var items []*model.ShopItem
	for rows.Next() {
		item, err := scanShopItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shop item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shop items: %w", err)
	}
	return items, nil
}

// GetActive fetches an active item by its item_id. Inactive and nonexistent
// items are indistinguishable to the buyer: both return ErrItemNotFound.
func (r *ShopRepository) GetActive(ctx context.Context, itemID string) (*model.ShopItem, error) {
	query := `SELECT ` + shopColumns + ` FROM shop_items WHERE item_id = $1 AND active`

	item, err := scanShopItem(r.pool.QueryRow(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get shop item: %w", err)
	}
	return item, nil
}

// Get fetches an item by item_id regardless of its active flag. Admin grants
// may reference deactivated items.
func (r *ShopRepository) Get(ctx context.Context, itemID string) (*model.ShopItem, error) {
	query := `SELECT ` + shopColumns + ` FROM shop_items WHERE item_id = $1`

	item, err := scanShopItem(r.pool.QueryRow(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get shop item: %w", err)
	}
	return item, nil
}

// Create adds a new catalog item.
func (r *ShopRepository) Create(ctx context.Context, itemID, name, description string, price int64, bonus float64, durationMinutes int) (*model.ShopItem, error) {
	query := `
		INSERT INTO shop_items (item_id, name, description, price, bonus, duration_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING ` + shopColumns

	item, err := scanShopItem(r.pool.QueryRow(ctx, query, itemID, name, description, price, bonus, durationMinutes))
	if err != nil {
		return nil, fmt.Errorf("failed to create shop item: %w", err)
	}
	return item, nil
}

// Update edits an item's definition. Existing grants are unaffected because
// they carry their own snapshot.
func (r *ShopRepository) Update(ctx context.Context, itemID, name, description string, price int64, bonus float64, durationMinutes int) (*model.ShopItem, error) {
	query := `
		UPDATE shop_items
		SET name = $2, description = $3, price = $4, bonus = $5, duration_minutes = $6, updated_at = NOW()
		WHERE item_id = $1
		RETURNING ` + shopColumns

	item, err := scanShopItem(r.pool.QueryRow(ctx, query, itemID, name, description, price, bonus, durationMinutes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to update shop item: %w", err)
	}
	return item, nil
}

// SetActive toggles an item's visibility (soft delete / restore).
func (r *ShopRepository) SetActive(ctx context.Context, itemID string, active bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE shop_items SET active = $2, updated_at = NOW() WHERE item_id = $1
	`, itemID, active)
	if err != nil {
		return fmt.Errorf("failed to set shop item active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}
