package service

import (
	"context"
	"sync"
	"time"

	"delivery-bot/internal/model"
	"delivery-bot/internal/repository"
)

// fakeStore is an in-memory implementation of the storage contracts for
// engine tests. One instance backs UserStore, BuffStore, Catalog, Ledger
// and TxLog at once so cross-store effects stay visible.
type fakeStore struct {
	mu         sync.Mutex
	users      map[int64]*model.User
	buffs      map[int64][]*model.Buff
	items      map[string]*model.ShopItem
	txs        []*model.Transaction
	nextBuffID int64
	now        time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[int64]*model.User),
		buffs: make(map[int64][]*model.Buff),
		items: make(map[string]*model.ShopItem),
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) addUser(u *model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.TelegramID] = &cp
}

func (f *fakeStore) addItem(i *model.ShopItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *i
	f.items[i.ItemID] = &cp
}

func (f *fakeStore) addBuff(userID int64, itemID, name string, bonus float64, expiresAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextBuffID++
	f.buffs[userID] = append(f.buffs[userID], &model.Buff{
		ID:        f.nextBuffID,
		UserID:    userID,
		ItemID:    itemID,
		Name:      name,
		Bonus:     bonus,
		ExpiresAt: expiresAt,
	})
}

func (f *fakeStore) user(id int64) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// UserStore

func (f *fakeStore) GetOrCreate(_ context.Context, telegramID int64, username string) (*model.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u, ok := f.users[telegramID]; ok {
		cp := *u
		return &cp, false, nil
	}
	if username == "" {
		username = repository.DefaultUsername(telegramID)
	}
	u := &model.User{TelegramID: telegramID, Username: username, CreatedAt: f.now, UpdatedAt: f.now}
	f.users[telegramID] = u
	cp := *u
	return &cp, true, nil
}

func (f *fakeStore) GetByID(_ context.Context, telegramID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) UpdateUsername(_ context.Context, telegramID int64, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[telegramID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Username = username
	return nil
}

func (f *fakeStore) SetBlocked(_ context.Context, telegramID int64, blocked bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.Blocked = blocked
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetTopByDeliveries(_ context.Context, limit int) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.User
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Deliveries > out[i].Deliveries {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) List(_ context.Context, offset, limit int) ([]*model.User, error) {
	users, _ := f.GetTopByDeliveries(context.Background(), 1<<30)
	if offset >= len(users) {
		return nil, nil
	}
	users = users[offset:]
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (f *fakeStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

func (f *fakeStore) Delete(_ context.Context, telegramID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[telegramID]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.users, telegramID)
	delete(f.buffs, telegramID)
	return nil
}

func (f *fakeStore) Totals(_ context.Context) (users, deliveries, money int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		users++
		deliveries += u.Deliveries
		money += u.Money
	}
	return users, deliveries, money, nil
}

// BuffStore

func (f *fakeStore) ActiveByUser(_ context.Context, userID int64, now time.Time) ([]*model.Buff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Buff
	for _, b := range f.buffs[userID] {
		if b.ExpiresAt.After(now) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) SumActiveBonus(_ context.Context, userID int64, now time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sum float64
	for _, b := range f.buffs[userID] {
		if b.ExpiresAt.After(now) {
			sum += b.Bonus
		}
	}
	return sum, nil
}

func (f *fakeStore) CountActive(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for _, buffs := range f.buffs {
		for _, b := range buffs {
			if b.ExpiresAt.After(now) {
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeStore) PruneExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for userID, buffs := range f.buffs {
		var kept []*model.Buff
		for _, b := range buffs {
			if b.ExpiresAt.After(before) {
				kept = append(kept, b)
			} else {
				n++
			}
		}
		f.buffs[userID] = kept
	}
	return n, nil
}

// Catalog

func (f *fakeStore) ListActive(_ context.Context) ([]*model.ShopItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.ShopItem
	for _, i := range f.items {
		if i.Active {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]*model.ShopItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.ShopItem
	for _, i := range f.items {
		cp := *i
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) GetActive(_ context.Context, itemID string) (*model.ShopItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.items[itemID]
	if !ok || !i.Active {
		return nil, repository.ErrItemNotFound
	}
	cp := *i
	return &cp, nil
}

func (f *fakeStore) Get(_ context.Context, itemID string) (*model.ShopItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.items[itemID]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	cp := *i
	return &cp, nil
}

func (f *fakeStore) Create(_ context.Context, itemID, name, description string, price int64, bonus float64, durationMinutes int) (*model.ShopItem, error) {
	item := &model.ShopItem{
		ItemID: itemID, Name: name, Description: description,
		Price: price, Bonus: bonus, DurationMinutes: durationMinutes, Active: true,
	}
	f.addItem(item)
	return item, nil
}

func (f *fakeStore) Update(_ context.Context, itemID, name, description string, price int64, bonus float64, durationMinutes int) (*model.ShopItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.items[itemID]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	i.Name, i.Description, i.Price, i.Bonus, i.DurationMinutes = name, description, price, bonus, durationMinutes
	cp := *i
	return &cp, nil
}

func (f *fakeStore) SetActive(_ context.Context, itemID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.items[itemID]
	if !ok {
		return repository.ErrItemNotFound
	}
	i.Active = active
	return nil
}

// Ledger

func (f *fakeStore) SettleDelivery(_ context.Context, userID int64, s repository.Settlement) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	u.Deliveries += s.Deliveries
	u.Money += s.Earnings + s.MilestoneBonus
	u.Experience += s.ExpGain
	now := s.Now
	u.LastDelivery = &now

	f.txs = append(f.txs, &model.Transaction{UserID: userID, Amount: s.Earnings, Type: model.TxTypeDelivery, CreatedAt: s.Now})
	if s.MilestoneBonus > 0 {
		f.txs = append(f.txs, &model.Transaction{UserID: userID, Amount: s.MilestoneBonus, Type: model.TxTypeMilestone, CreatedAt: s.Now})
	}

	cp := *u
	return &cp, nil
}

func (f *fakeStore) PurchaseBuff(_ context.Context, userID int64, item *model.ShopItem, expiresAt time.Time) (*model.Buff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if u.Money < item.Price {
		return nil, repository.ErrInsufficientFunds
	}
	u.Money -= item.Price

	f.nextBuffID++
	b := &model.Buff{
		ID: f.nextBuffID, UserID: userID, ItemID: item.ItemID,
		Name: item.Name, Bonus: item.Bonus, ExpiresAt: expiresAt,
	}
	f.buffs[userID] = append(f.buffs[userID], b)
	f.txs = append(f.txs, &model.Transaction{UserID: userID, Amount: -item.Price, Type: model.TxTypePurchase})

	cp := *b
	return &cp, nil
}

func (f *fakeStore) GrantBuff(_ context.Context, userID int64, item *model.ShopItem, expiresAt time.Time) (*model.Buff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[userID]; !ok {
		return nil, repository.ErrUserNotFound
	}

	f.nextBuffID++
	b := &model.Buff{
		ID: f.nextBuffID, UserID: userID, ItemID: item.ItemID,
		Name: item.Name, Bonus: item.Bonus, ExpiresAt: expiresAt,
	}
	f.buffs[userID] = append(f.buffs[userID], b)
	f.txs = append(f.txs, &model.Transaction{UserID: userID, Amount: 0, Type: model.TxTypeAdminGrant})

	cp := *b
	return &cp, nil
}

func (f *fakeStore) AdjustBalance(_ context.Context, userID int64, delta int64) (*model.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return nil, false, repository.ErrUserNotFound
	}

	applied := delta
	clamped := false
	if u.Money+delta < 0 {
		applied = -u.Money
		clamped = true
	}
	u.Money += applied
	f.txs = append(f.txs, &model.Transaction{UserID: userID, Amount: applied, Type: model.TxTypeAdminAdjust})

	cp := *u
	return &cp, clamped, nil
}

// TxLog

func (f *fakeStore) GetByUserID(_ context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Transaction
	for i := len(f.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.txs[i].UserID == userID {
			cp := *f.txs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// stubPolicy returns fixed delivery counts and base earnings.
type stubPolicy struct {
	deliveries int64
	base       int64
}

func (p stubPolicy) Generate(Rand) (int64, int64) {
	return p.deliveries, p.base
}

// stubRand always draws the minimum, making random spans deterministic.
type stubRand struct{}

func (stubRand) IntN(int) int       { return 0 }
func (stubRand) Int64N(int64) int64 { return 0 }
