package service

import (
	"context"
	"time"

	"delivery-bot/internal/model"
)

// StatsService derives global totals on read. Nothing is cached or counted
// incrementally; the numbers are whatever the aggregates say right now.
type StatsService struct {
	users UserStore
	buffs BuffStore
}

func NewStatsService(users UserStore, buffs BuffStore) *StatsService {
	return &StatsService{users: users, buffs: buffs}
}

// Overview computes the global stats snapshot at the given time.
func (s *StatsService) Overview(ctx context.Context, now time.Time) (*model.Stats, error) {
	users, deliveries, money, err := s.users.Totals(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.buffs.CountActive(ctx, now)
	if err != nil {
		return nil, err
	}

	return &model.Stats{
		TotalUsers:      users,
		TotalDeliveries: deliveries,
		TotalMoney:      money,
		ActiveBuffs:     active,
	}, nil
}
