package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-bot/internal/model"
	"delivery-bot/internal/pkg/lock"
	"delivery-bot/internal/repository"
)

func newTestShopService(store *fakeStore) *ShopService {
	return NewShopService(store, store, store, lock.NewUserLock(), 2*time.Minute)
}

func superBuff() *model.ShopItem {
	return &model.ShopItem{
		ItemID: "super_buff", Name: "Super Buff",
		Price: 850, Bonus: 0.15, DurationMinutes: 30, Active: true,
	}
}

func TestPurchaseFlow(t *testing.T) {
	store := newFakeStore()
	svc := newTestShopService(store)
	now := store.now

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 1000})
	store.addItem(superBuff())

	pending, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", now)
	require.NoError(t, err)
	assert.Equal(t, int64(850), pending.Item.Price)

	// Begin reserves nothing
	assert.Equal(t, int64(1000), store.user(1).Money)

	buff, err := svc.ConfirmPurchase(context.Background(), 1, pending.Token, now)
	require.NoError(t, err)

	assert.Equal(t, "Super Buff", buff.Name)
	assert.InDelta(t, 0.15, buff.Bonus, 1e-9)
	assert.True(t, buff.ExpiresAt.Equal(now.Add(30*time.Minute)))
	assert.Equal(t, int64(150), store.user(1).Money)

	// Tokens are single-use
	_, err = svc.ConfirmPurchase(context.Background(), 1, pending.Token, now)
	require.ErrorIs(t, err, ErrPendingNotFound)
}

func TestPurchaseExactBalance(t *testing.T) {
	store := newFakeStore()
	svc := newTestShopService(store)
	now := store.now

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 850})
	store.addItem(superBuff())

	pending, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", now)
	require.NoError(t, err)

	_, err = svc.ConfirmPurchase(context.Background(), 1, pending.Token, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), store.user(1).Money)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	store := newFakeStore()
	svc := newTestShopService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 849})
	store.addItem(superBuff())

	_, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", store.now)
	require.ErrorIs(t, err, repository.ErrInsufficientFunds)

	// Balance unchanged, no buff granted
	assert.Equal(t, int64(849), store.user(1).Money)
	buffs, _ := store.ActiveByUser(context.Background(), 1, store.now)
	assert.Empty(t, buffs)
}

func TestPurchaseFundsSpentBeforeConfirm(t *testing.T) {
	store := newFakeStore()
	svc := newTestShopService(store)
	now := store.now

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 1000})
	store.addItem(superBuff())

	pending, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", now)
	require.NoError(t, err)

	// Balance drops below price between Begin and Confirm
	_, _, err = store.AdjustBalance(context.Background(), 1, -500)
	require.NoError(t, err)

	_, err = svc.ConfirmPurchase(context.Background(), 1, pending.Token, now)
	require.ErrorIs(t, err, repository.ErrInsufficientFunds)
	assert.Equal(t, int64(500), store.user(1).Money)
}

func TestPurchaseExpiredToken(t *testing.T) {
	store := newFakeStore()
	svc := newTestShopService(store)
	now := store.now

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 1000})
	store.addItem(superBuff())

	pending, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", now)
	require.NoError(t, err)

	_, err = svc.ConfirmPurchase(context.Background(), 1, pending.Token, now.Add(3*time.Minute))
	require.ErrorIs(t, err, ErrPendingExpired)
	assert.Equal(t, int64(1000), store.user(1).Money)
}

func TestPurchaseTokenOwnership(t *testing.T) {
	store := newFakeStore()
	svc := newTestShopService(store)
	now := store.now

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 1000})
	store.addUser(&model.User{TelegramID: 2, Username: "eve", Money: 1000})
	store.addItem(superBuff())

	pending, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", now)
	require.NoError(t, err)

	// Another user cannot confirm someone else's offer
	_, err = svc.ConfirmPurchase(context.Background(), 2, pending.Token, now)
	require.ErrorIs(t, err, ErrPendingNotFound)

	// The rightful owner still can
	_, err = svc.ConfirmPurchase(context.Background(), 1, pending.Token, now)
	require.NoError(t, err)
}

func TestPurchaseSnapshotSurvivesCatalogEdit(t *testing.T) {
	store := newFakeStore()
	svc := newTestShopService(store)
	now := store.now

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 1000})
	store.addItem(superBuff())

	pending, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", now)
	require.NoError(t, err)

	// The catalog changes price and bonus after the offer was made
	_, err = store.Update(context.Background(), "super_buff", "Super Buff", "", 2000, 0.99, 5)
	require.NoError(t, err)

	buff, err := svc.ConfirmPurchase(context.Background(), 1, pending.Token, now)
	require.NoError(t, err)

	// The buyer pays and receives what was offered
	assert.Equal(t, int64(150), store.user(1).Money)
	assert.InDelta(t, 0.15, buff.Bonus, 1e-9)
	assert.True(t, buff.ExpiresAt.Equal(now.Add(30*time.Minute)))
}

func TestPurchaseBlockedUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestShopService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 1000, Blocked: true})
	store.addItem(superBuff())

	_, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", store.now)
	require.ErrorIs(t, err, ErrBlocked)
}

func TestPurchaseInactiveItem(t *testing.T) {
	store := newFakeStore()
	svc := newTestShopService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 1000})
	item := superBuff()
	item.Active = false
	store.addItem(item)

	_, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", store.now)
	require.ErrorIs(t, err, repository.ErrItemNotFound)
}

func TestCancelPurchase(t *testing.T) {
	store := newFakeStore()
	svc := newTestShopService(store)
	now := store.now

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 1000})
	store.addItem(superBuff())

	pending, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", now)
	require.NoError(t, err)

	svc.CancelPurchase(pending.Token)

	_, err = svc.ConfirmPurchase(context.Background(), 1, pending.Token, now)
	require.ErrorIs(t, err, ErrPendingNotFound)

	// Cancelling again or cancelling garbage is harmless
	svc.CancelPurchase(pending.Token)
	svc.CancelPurchase(uuid.New())
}

func TestPrunePending(t *testing.T) {
	store := newFakeStore()
	svc := newTestShopService(store)
	now := store.now

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 10000})
	store.addItem(superBuff())

	first, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", now)
	require.NoError(t, err)
	second, err := svc.BeginPurchase(context.Background(), 1, "bob", "super_buff", now.Add(time.Minute))
	require.NoError(t, err)

	// Only the first offer has passed its TTL
	pruned := svc.PrunePending(now.Add(2*time.Minute + time.Second))
	assert.Equal(t, 1, pruned)

	_, err = svc.ConfirmPurchase(context.Background(), 1, first.Token, now.Add(2*time.Minute+time.Second))
	require.ErrorIs(t, err, ErrPendingNotFound)
	_, err = svc.ConfirmPurchase(context.Background(), 1, second.Token, now.Add(2*time.Minute+time.Second))
	require.NoError(t, err)
}
