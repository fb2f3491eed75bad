package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"delivery-bot/internal/model"
	"delivery-bot/internal/pkg/lock"
)

// MaxUsernameLength is the rune limit for user-chosen display names.
const MaxUsernameLength = 20

// AccountService covers profile reads and display-name changes.
type AccountService struct {
	users    UserStore
	buffs    BuffStore
	locks    *lock.UserLock
	cooldown time.Duration
}

// Profile is a point-in-time snapshot of one account: the stored user row,
// the buffs still active at the snapshot time, and the remaining cooldown
// (zero when a delivery is possible right now).
type Profile struct {
	User              *model.User
	ActiveBuffs       []*model.Buff
	Multiplier        float64
	CooldownRemaining time.Duration
}

func NewAccountService(users UserStore, buffs BuffStore, locks *lock.UserLock, cooldown time.Duration) *AccountService {
	return &AccountService{
		users:    users,
		buffs:    buffs,
		locks:    locks,
		cooldown: cooldown,
	}
}

// EnsureUser returns the user's account, creating it with a generated
// default name when seen for the first time.
func (s *AccountService) EnsureUser(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	return s.users.GetOrCreate(ctx, telegramID, username)
}

// Profile assembles the account snapshot for the given time.
func (s *AccountService) Profile(ctx context.Context, telegramID int64, username string, now time.Time) (*Profile, error) {
	user, _, err := s.users.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	buffs, err := s.buffs.ActiveByUser(ctx, telegramID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load active buffs: %w", err)
	}

	var multiplier float64
	for _, b := range buffs {
		multiplier += b.Bonus
	}

	var remaining time.Duration
	if user.LastDelivery != nil {
		if elapsed := now.Sub(*user.LastDelivery); elapsed < s.cooldown {
			remaining = s.cooldown - elapsed
		}
	}

	return &Profile{
		User:              user,
		ActiveBuffs:       buffs,
		Multiplier:        multiplier,
		CooldownRemaining: remaining,
	}, nil
}

// Rename validates and applies a new display name. Names are trimmed, must
// be non-empty and at most MaxUsernameLength runes. Byte length does not
// matter, only rune count.
func (s *AccountService) Rename(ctx context.Context, telegramID int64, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if utf8.RuneCountInString(name) > MaxUsernameLength {
		return nil, ErrNameTooLong
	}

	s.locks.Lock(telegramID)
	defer s.locks.Unlock(telegramID)

	if err := s.users.UpdateUsername(ctx, telegramID, name); err != nil {
		return nil, fmt.Errorf("failed to rename user: %w", err)
	}
	return s.users.GetByID(ctx, telegramID)
}
