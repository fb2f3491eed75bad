package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-bot/internal/model"
)

const buffColumns = `id, user_id, item_id, name, bonus, expires_at, created_at`

// BuffRepository handles buff grant persistence. Grants snapshot the item
// name and bonus at purchase time; catalog edits never touch existing rows.
type BuffRepository struct {
	pool *pgxpool.Pool
}

// NewBuffRepository creates a new BuffRepository instance.
func NewBuffRepository(pool *pgxpool.Pool) *BuffRepository {
	return &BuffRepository{pool: pool}
}

func scanBuff(row pgx.Row) (*model.Buff, error) {
	var b model.Buff
	err := row.Scan(&b.ID, &b.UserID, &b.ItemID, &b.Name, &b.Bonus, &b.ExpiresAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Grant appends a buff grant for a user.
func (r *BuffRepository) Grant(ctx context.Context, userID int64, itemID, name string, bonus float64, expiresAt time.Time) (*model.Buff, error) {
	query := `
		INSERT INTO buffs (user_id, item_id, name, bonus, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + buffColumns

	buff, err := scanBuff(r.pool.QueryRow(ctx, query, userID, itemID, name, bonus, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to grant buff: %w", err)
	}
	return buff, nil
}

// ActiveByUser returns the user's non-expired grants, soonest-expiring first.
// The filter is strictly expires_at > now.
func (r *BuffRepository) ActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*model.Buff, error) {
	query := `
		SELECT ` + buffColumns + `
		FROM buffs
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY expires_at ASC
	`

	rows, err := r.pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active buffs: %w", err)
	}
	defer rows.Close()

	var buffs []*model.Buff
	for rows.Next() {
		buff, err := scanBuff(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan buff: %w", err)
		}
		buffs = append(buffs, buff)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buffs: %w", err)
	}
	return buffs, nil
}

// SumActiveBonus returns the additive multiplier over the user's non-expired
// grants. Unknown users naturally sum to 0.
func (r *BuffRepository) SumActiveBonus(ctx context.Context, userID int64, now time.Time) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(bonus), 0)
		FROM buffs
		WHERE user_id = $1 AND expires_at > $2
	`

	var sum float64
	if err := r.pool.QueryRow(ctx, query, userID, now).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum active bonus: %w", err)
	}
	return sum, nil
}

// CountActive returns the number of non-expired grants across all users.
func (r *BuffRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM buffs WHERE expires_at > $1`, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active buffs: %w", err)
	}
	return count, nil
}

// PruneExpired deletes grants that expired before the given time. Pruning is
// housekeeping only; correctness never depends on it because every read
// filters by expires_at.
func (r *BuffRepository) PruneExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM buffs WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune buffs: %w", err)
	}
	return result.RowsAffected(), nil
}
