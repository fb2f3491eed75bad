package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"delivery-bot/internal/model"
	"delivery-bot/internal/pkg/lock"
)

// OpKind discriminates administrative mutations.
type OpKind int

const (
	OpAdjustBalance OpKind = iota + 1
	OpGrantBuff
	OpSetBlocked
	OpRename
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpAdjustBalance:
		return "adjust_balance"
	case OpGrantBuff:
		return "grant_buff"
	case OpSetBlocked:
		return "set_blocked"
	case OpRename:
		return "rename"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Op is one administrative mutation against a single user. Kind selects the
// operation; only the fields that kind reads are meaningful.
type Op struct {
	Kind    OpKind
	UserID  int64
	Amount  int64  // OpAdjustBalance
	ItemID  string // OpGrantBuff
	Name    string // OpRename
	Blocked bool   // OpSetBlocked
}

// OpResult reports the outcome of one Op. User is nil for OpDelete. Clamped
// is set when a balance adjustment was limited to keep the balance at zero.
type OpResult struct {
	User    *model.User
	Buff    *model.Buff
	Clamped bool
}

// AdminService applies operator mutations to user accounts. Every mutation
// takes the target user's lock so it serializes against that user's own
// deliveries and purchases.
type AdminService struct {
	users   UserStore
	buffs   BuffStore
	catalog Catalog
	ledger  Ledger
	txlog   TxLog
	locks   *lock.UserLock
}

func NewAdminService(users UserStore, buffs BuffStore, catalog Catalog, ledger Ledger, txlog TxLog, locks *lock.UserLock) *AdminService {
	return &AdminService{
		users:   users,
		buffs:   buffs,
		catalog: catalog,
		ledger:  ledger,
		txlog:   txlog,
		locks:   locks,
	}
}

// Apply dispatches one operation by its kind.
func (s *AdminService) Apply(ctx context.Context, op Op) (*OpResult, error) {
	var (
		res *OpResult
		err error
	)

	switch op.Kind {
	case OpAdjustBalance:
		res, err = s.AdjustBalance(ctx, op.UserID, op.Amount)
	case OpGrantBuff:
		res, err = s.GrantBuff(ctx, op.UserID, op.ItemID, time.Now())
	case OpSetBlocked:
		res, err = s.SetBlocked(ctx, op.UserID, op.Blocked)
	case OpRename:
		res, err = s.Rename(ctx, op.UserID, op.Name)
	case OpDelete:
		res, err = &OpResult{}, s.DeleteUser(ctx, op.UserID)
	default:
		return nil, fmt.Errorf("unknown admin op kind %d", op.Kind)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("op", op.Kind.String()).
		Int64("user_id", op.UserID).
		Msg("Admin operation applied")

	return res, nil
}

// AdjustBalance adds delta to the user's balance. Deltas that would push the
// balance below zero are clamped so the balance lands exactly at zero; the
// result reports whether clamping happened.
func (s *AdminService) AdjustBalance(ctx context.Context, telegramID, delta int64) (*OpResult, error) {
	s.locks.Lock(telegramID)
	defer s.locks.Unlock(telegramID)

	user, clamped, err := s.ledger.AdjustBalance(ctx, telegramID, delta)
	if err != nil {
		return nil, err
	}
	return &OpResult{User: user, Clamped: clamped}, nil
}

// GrantBuff grants the user a catalog item without charging for it. The
// buff starts at the given time and inactive catalog items are grantable.
func (s *AdminService) GrantBuff(ctx context.Context, telegramID int64, itemID string, now time.Time) (*OpResult, error) {
	item, err := s.catalog.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(telegramID)
	defer s.locks.Unlock(telegramID)

	buff, err := s.ledger.GrantBuff(ctx, telegramID, item, now.Add(item.Duration()))
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return &OpResult{User: user, Buff: buff}, nil
}

// SetBlocked blocks or unblocks the account. Blocking does not touch the
// balance, buffs or cooldown state; everything resumes intact on unblock.
func (s *AdminService) SetBlocked(ctx context.Context, telegramID int64, blocked bool) (*OpResult, error) {
	s.locks.Lock(telegramID)
	defer s.locks.Unlock(telegramID)

	user, err := s.users.SetBlocked(ctx, telegramID, blocked)
	if err != nil {
		return nil, err
	}
	return &OpResult{User: user}, nil
}

// Rename sets the user's display name under the same validation rules as a
// self-rename.
func (s *AdminService) Rename(ctx context.Context, telegramID int64, name string) (*OpResult, error) {
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
		return nil, err
	}
	user, err := s.users.GetByID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return &OpResult{User: user}, nil
}

// DeleteUser removes the account and, through cascade, its buffs and
// transactions.
func (s *AdminService) DeleteUser(ctx context.Context, telegramID int64) error {
	s.locks.Lock(telegramID)
	defer s.locks.Unlock(telegramID)

	return s.users.Delete(ctx, telegramID)
}

// GetUser reads one account.
func (s *AdminService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.users.GetByID(ctx, telegramID)
}

// ListUsers pages through all accounts.
func (s *AdminService) ListUsers(ctx context.Context, offset, limit int) ([]*model.User, int64, error) {
	users, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// History returns the user's most recent economy transactions.
func (s *AdminService) History(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error) {
	return s.txlog.GetByUserID(ctx, telegramID, limit)
}

// ActiveBuffs lists the user's non-expired grants.
func (s *AdminService) ActiveBuffs(ctx context.Context, telegramID int64, now time.Time) ([]*model.Buff, error) {
	return s.buffs.ActiveByUser(ctx, telegramID, now)
}

// PruneExpiredBuffs deletes grant rows that expired before the given time.
// Pruning is hygiene only; expired grants never contribute to multipliers
// regardless.
func (s *AdminService) PruneExpiredBuffs(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.buffs.PruneExpired(ctx, before)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("pruned", n).Msg("Expired buffs pruned")
	}
	return n, nil
}
