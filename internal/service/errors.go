package service

import (
	"errors"
	"fmt"
	"time"
)

// Engine errors. Storage-level kinds (ErrUserNotFound, ErrItemNotFound,
// ErrInsufficientFunds, ErrConflict) are defined in internal/repository and
// propagate through unchanged; callers match all of them with errors.Is.
var (
	// ErrBlocked rejects deliveries and purchases by blocked accounts.
	// It deliberately carries no cooldown information.
	ErrBlocked = errors.New("user is blocked")

	// ErrInvalidName rejects empty display names on rename.
	ErrInvalidName = errors.New("display name is empty")

	// ErrNameTooLong rejects display names over the 20-character limit.
	ErrNameTooLong = errors.New("display name exceeds 20 characters")

	// ErrPendingNotFound means the purchase confirmation token is unknown
	// or already consumed.
	ErrPendingNotFound = errors.New("pending purchase not found")

	// ErrPendingExpired means the confirmation window elapsed; the buyer
	// must start the purchase over.
	ErrPendingExpired = errors.New("pending purchase expired")
)

// CooldownError reports that a delivery was attempted before the cooldown
// elapsed. Remaining is the exact duration until the next attempt may
// succeed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active: %s remaining", e.Remaining)
}

// AsCooldown unwraps err into a CooldownError, if it is one.
func AsCooldown(err error) (*CooldownError, bool) {
	var ce *CooldownError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
