package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"delivery-bot/internal/config"
	"delivery-bot/internal/model"
	"delivery-bot/internal/pkg/lock"
	"delivery-bot/internal/repository"
)

// DeliveryService is the single authority for delivery cooldown gating and
// earnings settlement. All mutations for one user run under that user's lock
// and commit atomically; blocked status always wins over an expired cooldown.
type DeliveryService struct {
	users  UserStore
	buffs  BuffStore
	ledger Ledger
	locks  *lock.UserLock
	rand   Rand
	policy EarningsPolicy

	cooldown      time.Duration
	expMin        int64
	expMax        int64
	milestoneStep int64
	milestoneMax  int64
}

// DeliveryResult reports one settled delivery. BuffedEarnings >= BaseEarnings
// always holds; the difference is display-only information for the caller.
type DeliveryResult struct {
	Deliveries     int64
	BaseEarnings   int64
	BuffedEarnings int64
	Multiplier     float64
	MilestoneBonus int64
	User           *model.User
}

// NewDeliveryService creates a new DeliveryService instance.
func NewDeliveryService(
	users UserStore,
	buffs BuffStore,
	ledger Ledger,
	locks *lock.UserLock,
	cfg *config.DeliveryConfig,
	policy EarningsPolicy,
	rnd Rand,
) *DeliveryService {
	return &DeliveryService{
		users:         users,
		buffs:         buffs,
		ledger:        ledger,
		locks:         locks,
		rand:          rnd,
		policy:        policy,
		cooldown:      cfg.Cooldown(),
		expMin:        cfg.ExpMin,
		expMax:        cfg.ExpMax,
		milestoneStep: cfg.MilestoneStep,
		milestoneMax:  cfg.MilestoneMax,
	}
}

// Cooldown returns the configured delivery cooldown.
func (s *DeliveryService) Cooldown() time.Duration {
	return s.cooldown
}

// AttemptDelivery runs one delivery attempt for the user at the given time.
// The user is created lazily if absent. Fails with ErrBlocked for blocked
// accounts (without cooldown information) or with CooldownError carrying the
// exact remaining duration. On success the settlement is applied as one
// atomic ledger update.
func (s *DeliveryService) AttemptDelivery(ctx context.Context, telegramID int64, username string, now time.Time) (*DeliveryResult, error) {
	s.locks.Lock(telegramID)
	defer s.locks.Unlock(telegramID)

	user, _, err := s.users.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	if user.Blocked {
		return nil, ErrBlocked
	}

	if user.LastDelivery != nil {
		elapsed := now.Sub(*user.LastDelivery)
		if elapsed < s.cooldown {
			return nil, &CooldownError{Remaining: s.cooldown - elapsed}
		}
	}

	deliveries, base := s.policy.Generate(s.rand)

	multiplier, err := s.buffs.SumActiveBonus(ctx, telegramID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute multiplier: %w", err)
	}

	buffed := applyMultiplier(base, multiplier)

	expGain := s.expMin + s.rand.Int64N(s.expMax-s.expMin+1)

	var milestoneBonus int64
	if s.milestoneStep > 0 && user.Experience/s.milestoneStep < (user.Experience+expGain)/s.milestoneStep {
		milestoneBonus = 1 + s.rand.Int64N(s.milestoneMax)
	}

	settled, err := s.ledger.SettleDelivery(ctx, telegramID, repository.Settlement{
		Deliveries:     deliveries,
		Earnings:       buffed,
		MilestoneBonus: milestoneBonus,
		ExpGain:        expGain,
		Now:            now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to settle delivery: %w", err)
	}

	log.Info().
		Int64("user_id", telegramID).
		Int64("deliveries", deliveries).
		Int64("base", base).
		Int64("buffed", buffed).
		Float64("multiplier", multiplier).
		Msg("Delivery settled")

	return &DeliveryResult{
		Deliveries:     deliveries,
		BaseEarnings:   base,
		BuffedEarnings: buffed,
		Multiplier:     multiplier,
		MilestoneBonus: milestoneBonus,
		User:           settled,
	}, nil
}

// applyMultiplier floors base * (1 + multiplier). Bonus fractions such as
// 0.15 have no exact float64 form and the raw product can land a hair below
// the intended integer, so the product is nudged up by a tiny epsilon before
// flooring. The result never drops below the unbuffed base.
func applyMultiplier(base int64, multiplier float64) int64 {
	buffed := int64(math.Floor(float64(base)*(1+multiplier) + 1e-9))
	if buffed < base {
		buffed = base
	}
	return buffed
}

// ComputeActiveMultiplier sums the bonus fractions of the user's non-expired
// grants. It is a pure read: unknown users yield 0.0 rather than an error,
// and nothing is created or mutated.
func (s *DeliveryService) ComputeActiveMultiplier(ctx context.Context, telegramID int64, now time.Time) (float64, error) {
	return s.buffs.SumActiveBonus(ctx, telegramID, now)
}

// CanDeliver reports whether a delivery at the given time would pass the
// gate, and the remaining cooldown if not. Blocked users can never deliver.
// Unknown users can deliver immediately.
func (s *DeliveryService) CanDeliver(ctx context.Context, telegramID int64, now time.Time) (bool, time.Duration, error) {
	user, err := s.users.GetByID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return true, 0, nil
		}
		return false, 0, err
	}

	if user.Blocked {
		return false, 0, nil
	}
	if user.LastDelivery == nil {
		return true, 0, nil
	}

	elapsed := now.Sub(*user.LastDelivery)
	if elapsed < s.cooldown {
		return false, s.cooldown - elapsed, nil
	}
	return true, 0, nil
}
