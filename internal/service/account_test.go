package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-bot/internal/model"
	"delivery-bot/internal/pkg/lock"
)

func newTestAccountService(store *fakeStore) *AccountService {
	return NewAccountService(store, store, lock.NewUserLock(), 2*time.Minute)
}

func TestEnsureUserDefaultName(t *testing.T) {
	store := newFakeStore()
	svc := newTestAccountService(store)

	user, created, err := svc.EnsureUser(context.Background(), 987654321, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Courier 4321", user.Username)

	// A second call returns the same account
	again, created, err := svc.EnsureUser(context.Background(), 987654321, "ignored")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.Username, again.Username)
}

func TestProfileSnapshot(t *testing.T) {
	store := newFakeStore()
	svc := newTestAccountService(store)
	now := store.now

	last := now.Add(-30 * time.Second)
	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 500, Deliveries: 7, LastDelivery: &last})
	store.addBuff(1, "super_buff", "Super Buff", 0.15, now.Add(10*time.Minute))
	store.addBuff(1, "stale", "Stale Buff", 0.50, now.Add(-time.Minute))

	profile, err := svc.Profile(context.Background(), 1, "bob", now)
	require.NoError(t, err)

	assert.Equal(t, int64(500), profile.User.Money)
	require.Len(t, profile.ActiveBuffs, 1)
	assert.Equal(t, "Super Buff", profile.ActiveBuffs[0].Name)
	assert.InDelta(t, 0.15, profile.Multiplier, 1e-9)
	assert.Equal(t, 90*time.Second, profile.CooldownRemaining)
}

func TestProfileCooldownElapsed(t *testing.T) {
	store := newFakeStore()
	svc := newTestAccountService(store)
	now := store.now

	last := now.Add(-time.Hour)
	store.addUser(&model.User{TelegramID: 1, Username: "bob", LastDelivery: &last})

	profile, err := svc.Profile(context.Background(), 1, "bob", now)
	require.NoError(t, err)
	assert.Zero(t, profile.CooldownRemaining)
}

func TestRenameTrimsWhitespace(t *testing.T) {
	store := newFakeStore()
	svc := newTestAccountService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob"})

	user, err := svc.Rename(context.Background(), 1, "  Speedy Sam  ")
	require.NoError(t, err)
	assert.Equal(t, "Speedy Sam", user.Username)
}

func TestRenameRejectsBadNames(t *testing.T) {
	store := newFakeStore()
	svc := newTestAccountService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob"})

	_, err := svc.Rename(context.Background(), 1, "   ")
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Rename(context.Background(), 1, "abcdefghijklmnopqrstu")
	require.ErrorIs(t, err, ErrNameTooLong)

	// Unchanged after rejected attempts
	assert.Equal(t, "bob", store.user(1).Username)
}

func TestRankingTopOrder(t *testing.T) {
	store := newFakeStore()
	svc := NewRankingService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "low", Deliveries: 3})
	store.addUser(&model.User{TelegramID: 2, Username: "high", Deliveries: 90})
	store.addUser(&model.User{TelegramID: 3, Username: "mid", Deliveries: 40})

	top, err := svc.Top(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "high", top[0].Username)
	assert.Equal(t, "mid", top[1].Username)
}

func TestStatsOverview(t *testing.T) {
	store := newFakeStore()
	svc := NewStatsService(store, store)
	now := store.now

	store.addUser(&model.User{TelegramID: 1, Username: "a", Deliveries: 5, Money: 100})
	store.addUser(&model.User{TelegramID: 2, Username: "b", Deliveries: 10, Money: 250})
	store.addBuff(1, "x", "X", 0.1, now.Add(time.Hour))
	store.addBuff(2, "y", "Y", 0.2, now.Add(-time.Hour))

	stats, err := svc.Overview(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(15), stats.TotalDeliveries)
	assert.Equal(t, int64(350), stats.TotalMoney)
	assert.Equal(t, int64(1), stats.ActiveBuffs)
}
