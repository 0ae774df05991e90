package tokens

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest: malformed or tampered input (empty cart, bad
	// quantities, declared total not matching the recomputed one).
	ErrInvalidRequest = errors.New("invalid request")

	ErrUserNotFound   = errors.New("user not found")
	ErrStallNotFound  = errors.New("stall not found")
	ErrAccountBlocked = errors.New("account blocked")
	ErrWrongPIN       = errors.New("wrong pin")

	// ErrTokenNotFound covers both truly missing tokens and tokens
	// owned by another stall, so probes cannot confirm foreign ids.
	ErrTokenNotFound = errors.New("token not found")

	// ErrOrderFailed is the opaque infrastructure failure. Detail goes
	// to the server log, never to the client, and nothing retries it.
	ErrOrderFailed = errors.New("order failed")
)

// InsufficientFundsError carries the live balance read under the row
// lock so the client can show it.
type InsufficientFundsError struct {
	BalanceCents int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d", e.BalanceCents)
}
