// Package lock provides per-user locking for concurrent economy operations.
// Property-based tests for serialized settlement safety.
package lock

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentSettlementSafetyProperty checks that for any set of
// concurrent balance mutations on the same user, the final balance matches
// sequential execution when every mutation holds the user's lock.
func TestConcurrentSettlementSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		amounts := make([]int64, numOps)
		expectedFinalBalance := initialBalance
		for i := 0; i < numOps; i++ {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expectedFinalBalance += amounts[i]
		}

		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		ul := NewUserLock()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				ul.Lock(userID)
				defer ul.Unlock(userID)
				balance += amount
			}(amount)
		}
		wg.Wait()

		if balance != expectedFinalBalance {
			t.Fatalf("Balance mismatch with locking: expected %d, got %d (initial=%d, numOps=%d)",
				expectedFinalBalance, balance, initialBalance, numOps)
		}
	})
}

// TestWithLockSerializesProperty checks that WithLock serializes
// read-modify-write sequences the same way explicit Lock/Unlock does.
func TestWithLockSerializesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		amountPerOp := rapid.Int64Range(1, 100).Draw(t, "amountPerOp")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		expectedFinalBalance := initialBalance + int64(numOps)*amountPerOp

		ul := NewUserLock()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = ul.WithLock(userID, func() error {
					current := balance
					balance = current + amountPerOp
					return nil
				})
			}()
		}
		wg.Wait()

		if balance != expectedFinalBalance {
			t.Fatalf("Balance mismatch with WithLock: expected %d, got %d", expectedFinalBalance, balance)
		}
	})
}

// TestDifferentUsersDoNotBlock checks that TryLock on one user succeeds
// while another user's lock is held.
func TestDifferentUsersDoNotBlock(t *testing.T) {
	ul := NewUserLock()

	ul.Lock(1)
	defer ul.Unlock(1)

	if !ul.TryLock(2) {
		t.Fatal("lock on user 2 should not be blocked by user 1")
	}
	ul.Unlock(2)

	if ul.TryLock(1) {
		t.Fatal("second lock on user 1 should fail while held")
	}
}
