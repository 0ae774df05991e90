package tokens

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/ariefcatur/go-campus-tokens.git/internal/auth"
)

// Ledger is the order placement engine: verify PIN, then atomically
// debit the balance, allocate the next per-stall token number and
// record the token. Everything before the transaction is cheap and
// lock-free; everything inside it commits or rolls back as a unit.
type Ledger struct {
	store Store
	sem   *semaphore.Weighted
}

// NewLedger caps concurrently executing placements at maxConcurrent.
// Excess requests queue on the semaphore ahead of the pool.
func NewLedger(store Store, maxConcurrent int64) *Ledger {
	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}
	return &Ledger{store: store, sem: semaphore.NewWeighted(maxConcurrent)}
}

type PlaceOrderRequest struct {
	Username   string
	StallID    string
	StallName  string
	Items      []LineItem
	TotalCents int64
	PIN        string
}

type Placement struct {
	TokenID         int64
	TokenNo         int
	NewBalanceCents int64
}

func (l *Ledger) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Placement, error) {
	// Pre-checks, no lock held.
	if req.StallID == "" || req.StallName == "" {
		return nil, fmt.Errorf("%w: missing stall", ErrInvalidRequest)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: empty cart", ErrInvalidRequest)
	}
	for _, it := range req.Items {
		if it.Name == "" || it.Qty <= 0 || it.PriceCents <= 0 {
			return nil, fmt.Errorf("%w: bad line item %q", ErrInvalidRequest, it.Name)
		}
	}
	// Recompute the total server-side; a tampered client total is rejected.
	if CartTotal(req.Items) != req.TotalCents {
		return nil, fmt.Errorf("%w: total mismatch", ErrInvalidRequest)
	}

	info, err := l.store.FindUserForAuth(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: auth lookup: %v", ErrOrderFailed, err)
	}
	if info.Blocked {
		return nil, ErrAccountBlocked
	}

	// bcrypt is the slowest step; keep it outside the transaction so a
	// user's retries never serialize behind their own row lock.
	if !auth.CheckPin(req.PIN, info.PinHash) {
		return nil, ErrWrongPIN
	}

	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFailed, err)
	}
	defer l.sem.Release(1)

	var pl Placement
	err = l.store.InTx(ctx, func(tx TxStore) error {
		// Re-read under the lock; the pre-check value cannot be trusted.
		balance, err := tx.LockBalance(ctx, info.Username)
		if err != nil {
			return err
		}
		if balance < req.TotalCents {
			return &InsufficientFundsError{BalanceCents: balance}
		}
		if err := tx.Debit(ctx, info.Username, req.TotalCents); err != nil {
			return err
		}

		// Must stay in the same transaction as the debit: no token
		// without a debit, no debit without a token.
		no, err := tx.NextTokenNo(ctx, req.StallID)
		if err != nil {
			return err
		}

		id, err := tx.InsertToken(ctx, &Token{
			TokenNo:    no,
			StallID:    req.StallID,
			StallName:  req.StallName,
			Username:   info.Username,
			Items:      req.Items,
			TotalCents: req.TotalCents,
			Status:     StatusPending,
		})
		if err != nil {
			return err
		}

		pl = Placement{TokenID: id, TokenNo: no, NewBalanceCents: balance - req.TotalCents}
		return nil
	})
	if err != nil {
		var insuf *InsufficientFundsError
		if errors.As(err, &insuf) {
			return nil, insuf
		}
		if errors.Is(err, ErrStallNotFound) {
			return nil, err
		}
		// Anything else is opaque to the caller. No automatic retry:
		// without an idempotency key a retry could double-charge.
		return nil, fmt.Errorf("%w: %v", ErrOrderFailed, err)
	}
	return &pl, nil
}
