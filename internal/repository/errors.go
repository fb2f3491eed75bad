package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrItemNotFound      = errors.New("shop item not found")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict signals a concurrent-write collision. No partial state was
	// persisted; the caller should retry the whole operation.
	ErrConflict = errors.New("storage conflict")
)

// mapConflict translates PostgreSQL serialization and deadlock failures
// into ErrConflict so callers can retry without inspecting SQLSTATEs.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ErrConflict
		}
	}
	return err
}

// isForeignKeyViolation reports whether err is a foreign key violation,
// which on the buffs table means the referenced user does not exist.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
