package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"delivery-bot/internal/service"
)

// RankingHandler handles the leaderboard command.
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

// HandleTop handles the /top command.
func (h *RankingHandler) HandleTop(c tele.Context) error {
	ctx := context.Background()

	users, err := h.rankingService.Top(ctx, service.DefaultLeaderboardSize)
	if err != nil {
		return c.Reply("❌ Failed to load leaderboard, please try again later")
	}
	if len(users) == 0 {
		return c.Reply("🏆 No couriers yet. Be the first with /delivery!")
	}

	medals := []string{"🥇", "🥈", "🥉"}
	msg := "🏆 Top Couriers\n━━━━━━━━━━━━━━━\n"
	for i, u := range users {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		msg += fmt.Sprintf("%s %s: %d deliveries\n", rank, u.Username, u.Deliveries)
	}

	return c.Reply(msg)
}
