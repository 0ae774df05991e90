package tokens

import "context"

// AuthInfo is the slice of the user row needed before the transaction.
type AuthInfo struct {
	Username string // canonical casing from the users table
	PinHash  string
	Blocked  bool
}

// Store is what the ledger needs from the database. The pgx
// implementation lives in pg.go; tests run against an in-memory one.
type Store interface {
	// FindUserForAuth resolves a username case-insensitively.
	// Returns ErrUserNotFound when absent.
	FindUserForAuth(ctx context.Context, username string) (*AuthInfo, error)

	// InTx runs fn inside one transaction; any error from fn rolls
	// the whole thing back.
	InTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the transaction-scoped surface. All calls operate under
// the same transaction handle.
type TxStore interface {
	// LockBalance takes the exclusive row lock on one user's balance
	// and returns the current value. Blocks if another transaction
	// holds the same user's row; unrelated users are untouched.
	LockBalance(ctx context.Context, username string) (int64, error)

	Debit(ctx context.Context, username string, amountCents int64) error

	// NextTokenNo serializes per-stall numbering (stall row lock) and
	// returns max+1, or 1 for a stall with no tokens yet.
	NextTokenNo(ctx context.Context, stallID string) (int, error)

	InsertToken(ctx context.Context, t *Token) (int64, error)
}
