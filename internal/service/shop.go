package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"delivery-bot/internal/model"
	"delivery-bot/internal/pkg/lock"
	"delivery-bot/internal/repository"
)

// PendingPurchase is an offered-but-unconfirmed purchase. The item snapshot
// is taken at offer time; catalog edits between Begin and Confirm do not
// change what the user pays or receives.
type PendingPurchase struct {
	Token     uuid.UUID
	UserID    int64
	Item      *model.ShopItem
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ShopService sells buffs in two phases: BeginPurchase reserves nothing and
// returns a token, ConfirmPurchase performs the atomic debit-and-grant.
// Pending offers live in memory and expire after a short TTL.
type ShopService struct {
	catalog Catalog
	users   UserStore
	ledger  Ledger
	locks   *lock.UserLock

	mu      sync.Mutex
	pending map[uuid.UUID]*PendingPurchase
	ttl     time.Duration
}

func NewShopService(catalog Catalog, users UserStore, ledger Ledger, locks *lock.UserLock, pendingTTL time.Duration) *ShopService {
	return &ShopService{
		catalog: catalog,
		users:   users,
		ledger:  ledger,
		locks:   locks,
		pending: make(map[uuid.UUID]*PendingPurchase),
		ttl:     pendingTTL,
	}
}

// ListItems returns the purchasable catalog, cheapest first.
func (s *ShopService) ListItems(ctx context.Context) ([]*model.ShopItem, error) {
	return s.catalog.ListActive(ctx)
}

// Item returns one purchasable catalog entry.
func (s *ShopService) Item(ctx context.Context, itemID string) (*model.ShopItem, error) {
	return s.catalog.GetActive(ctx, itemID)
}

// BeginPurchase validates the buyer and item and returns a pending offer.
// The balance check here is advisory only; the authoritative check is the
// conditional debit inside ConfirmPurchase.
func (s *ShopService) BeginPurchase(ctx context.Context, telegramID int64, username, itemID string, now time.Time) (*PendingPurchase, error) {
	user, _, err := s.users.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user.Blocked {
		return nil, ErrBlocked
	}

	item, err := s.catalog.GetActive(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if user.Money < item.Price {
		return nil, repository.ErrInsufficientFunds
	}

	p := &PendingPurchase{
		Token:     uuid.New(),
		UserID:    telegramID,
		Item:      item,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.pending[p.Token] = p
	s.mu.Unlock()

	return p, nil
}

// ConfirmPurchase settles a pending offer: the debit, the grant and the
// ledger entry commit together or not at all. The token is consumed whether
// or not the settlement succeeds; a failed confirm requires a fresh Begin.
func (s *ShopService) ConfirmPurchase(ctx context.Context, telegramID int64, token uuid.UUID, now time.Time) (*model.Buff, error) {
	p, err := s.take(token, telegramID, now)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(telegramID)
	defer s.locks.Unlock(telegramID)

	buff, err := s.ledger.PurchaseBuff(ctx, telegramID, p.Item, now.Add(p.Item.Duration()))
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("user_id", telegramID).
		Str("item_id", p.Item.ItemID).
		Int64("price", p.Item.Price).
		Time("expires_at", buff.ExpiresAt).
		Msg("Buff purchased")

	return buff, nil
}

// CancelPurchase discards a pending offer. Cancelling an unknown or expired
// token is not an error.
func (s *ShopService) CancelPurchase(token uuid.UUID) {
	s.mu.Lock()
	delete(s.pending, token)
	s.mu.Unlock()
}

// take removes and returns the pending offer, validating ownership and TTL.
func (s *ShopService) take(token uuid.UUID, telegramID int64, now time.Time) (*PendingPurchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[token]
	if !ok || p.UserID != telegramID {
		return nil, ErrPendingNotFound
	}
	delete(s.pending, token)

	if now.After(p.ExpiresAt) {
		return nil, ErrPendingExpired
	}
	return p, nil
}

// PrunePending drops expired offers. Intended to run periodically; Confirm
// rejects stale tokens on its own, this just bounds the map.
func (s *ShopService) PrunePending(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for token, p := range s.pending {
		if now.After(p.ExpiresAt) {
			delete(s.pending, token)
			n++
		}
	}
	return n
}
