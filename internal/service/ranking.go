package service

import (
	"context"

	"delivery-bot/internal/model"
)

// DefaultLeaderboardSize bounds the public leaderboard.
const DefaultLeaderboardSize = 10

// RankingService exposes the delivery leaderboard. Ordering is by completed
// deliveries, not balance; spending in the shop never moves a rank.
type RankingService struct {
	users UserStore
}

func NewRankingService(users UserStore) *RankingService {
	return &RankingService{users: users}
}

// Top returns up to limit users ordered by deliveries descending. A limit
// of zero or less falls back to DefaultLeaderboardSize.
func (s *RankingService) Top(ctx context.Context, limit int) ([]*model.User, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	return s.users.GetTopByDeliveries(ctx, limit)
}
