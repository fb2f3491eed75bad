package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"delivery-bot/internal/model"
	"delivery-bot/internal/pkg/lock"
	"delivery-bot/internal/repository"
)

func newTestAdminService(store *fakeStore) *AdminService {
	return NewAdminService(store, store, store, store, store, lock.NewUserLock())
}

func TestAdminAdjustBalance(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 500})

	res, err := svc.Apply(context.Background(), Op{Kind: OpAdjustBalance, UserID: 1, Amount: 250})
	require.NoError(t, err)
	assert.Equal(t, int64(750), res.User.Money)
	assert.False(t, res.Clamped)

	res, err = svc.Apply(context.Background(), Op{Kind: OpAdjustBalance, UserID: 1, Amount: -200})
	require.NoError(t, err)
	assert.Equal(t, int64(550), res.User.Money)
	assert.False(t, res.Clamped)
}

func TestAdminAdjustBalanceClampsAtZero(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 100})

	res, err := svc.Apply(context.Background(), Op{Kind: OpAdjustBalance, UserID: 1, Amount: -500})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.User.Money)
	assert.True(t, res.Clamped)
}

// TestAdminAdjustClampProperty checks that for any balance and delta, the
// result never goes negative and only reports clamping when it applied.
func TestAdminAdjustClampProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		balance := rapid.Int64Range(0, 100000).Draw(rt, "balance")
		delta := rapid.Int64Range(-200000, 200000).Draw(rt, "delta")

		store := newFakeStore()
		svc := newTestAdminService(store)
		store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: balance})

		res, err := svc.Apply(context.Background(), Op{Kind: OpAdjustBalance, UserID: 1, Amount: delta})
		if err != nil {
			rt.Fatalf("adjust failed: %v", err)
		}

		if res.User.Money < 0 {
			rt.Fatalf("balance went negative: %d", res.User.Money)
		}
		wantClamped := balance+delta < 0
		if res.Clamped != wantClamped {
			rt.Fatalf("clamped = %v, want %v (balance=%d delta=%d)", res.Clamped, wantClamped, balance, delta)
		}
		if !wantClamped && res.User.Money != balance+delta {
			rt.Fatalf("balance = %d, want %d", res.User.Money, balance+delta)
		}
		if wantClamped && res.User.Money != 0 {
			rt.Fatalf("clamped balance = %d, want 0", res.User.Money)
		}
	})
}

func TestAdminGrantBuff(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 0})
	store.addItem(&model.ShopItem{
		ItemID: "hyper_buff", Name: "Hyper Buff",
		Price: 2750, Bonus: 0.50, DurationMinutes: 40, Active: true,
	})

	res, err := svc.Apply(context.Background(), Op{Kind: OpGrantBuff, UserID: 1, ItemID: "hyper_buff"})
	require.NoError(t, err)

	// No charge for admin grants
	assert.Equal(t, int64(0), res.User.Money)
	assert.InDelta(t, 0.50, res.Buff.Bonus, 1e-9)

	buffs, err := store.ActiveByUser(context.Background(), 1, time.Now())
	require.NoError(t, err)
	require.Len(t, buffs, 1)
}

func TestAdminGrantBuffInactiveItem(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob"})
	store.addItem(&model.ShopItem{
		ItemID: "retired", Name: "Retired Buff",
		Price: 100, Bonus: 0.10, DurationMinutes: 10, Active: false,
	})

	// Grants work on deactivated items too
	_, err := svc.Apply(context.Background(), Op{Kind: OpGrantBuff, UserID: 1, ItemID: "retired"})
	require.NoError(t, err)
}

func TestAdminSetBlocked(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob", Money: 500, Deliveries: 10})

	res, err := svc.Apply(context.Background(), Op{Kind: OpSetBlocked, UserID: 1, Blocked: true})
	require.NoError(t, err)
	assert.True(t, res.User.Blocked)

	// Blocking leaves the economy state intact
	assert.Equal(t, int64(500), res.User.Money)
	assert.Equal(t, int64(10), res.User.Deliveries)

	res, err = svc.Apply(context.Background(), Op{Kind: OpSetBlocked, UserID: 1, Blocked: false})
	require.NoError(t, err)
	assert.False(t, res.User.Blocked)
}

func TestAdminRenameValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob"})

	res, err := svc.Apply(context.Background(), Op{Kind: OpRename, UserID: 1, Name: "Speedy"})
	require.NoError(t, err)
	assert.Equal(t, "Speedy", res.User.Username)

	_, err = svc.Apply(context.Background(), Op{Kind: OpRename, UserID: 1, Name: "   "})
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Apply(context.Background(), Op{Kind: OpRename, UserID: 1, Name: strings.Repeat("x", 21)})
	require.ErrorIs(t, err, ErrNameTooLong)

	// 20 runes of multi-byte text is fine
	res, err = svc.Apply(context.Background(), Op{Kind: OpRename, UserID: 1, Name: strings.Repeat("é", 20)})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 20), res.User.Username)
}

func TestAdminDeleteUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(store)

	store.addUser(&model.User{TelegramID: 1, Username: "bob"})
	store.addBuff(1, "x", "X", 0.1, store.now.Add(time.Hour))

	_, err := svc.Apply(context.Background(), Op{Kind: OpDelete, UserID: 1})
	require.NoError(t, err)

	_, err = svc.GetUser(context.Background(), 1)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestAdminUnknownOp(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(store)

	_, err := svc.Apply(context.Background(), Op{Kind: OpKind(99), UserID: 1})
	require.Error(t, err)
}

func TestAdminUserNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(store)

	_, err := svc.Apply(context.Background(), Op{Kind: OpAdjustBalance, UserID: 404, Amount: 10})
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestAdminPruneExpiredBuffs(t *testing.T) {
	store := newFakeStore()
	svc := newTestAdminService(store)
	now := store.now

	store.addUser(&model.User{TelegramID: 1, Username: "bob"})
	store.addBuff(1, "a", "A", 0.1, now.Add(-time.Hour))
	store.addBuff(1, "b", "B", 0.2, now.Add(time.Hour))

	n, err := svc.PruneExpiredBuffs(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	buffs, err := svc.ActiveBuffs(context.Background(), 1, now)
	require.NoError(t, err)
	require.Len(t, buffs, 1)
	assert.Equal(t, "B", buffs[0].Name)
}
