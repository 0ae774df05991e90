package tokens

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG implements Store and the token queries on Postgres.
type PG struct{ DB *pgxpool.Pool }

func (s *PG) FindUserForAuth(ctx context.Context, username string) (*AuthInfo, error) {
	var info AuthInfo
	err := s.DB.QueryRow(ctx,
		`SELECT username, pin_hash, blocked FROM users WHERE LOWER(username)=LOWER($1)`,
		username,
	).Scan(&info.Username, &info.PinHash, &info.Blocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *PG) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) LockBalance(ctx context.Context, username string) (int64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx,
		`SELECT balance_cents FROM users WHERE username=$1 FOR UPDATE`,
		username,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return balance, err
}

func (t *pgTx) Debit(ctx context.Context, username string, amountCents int64) error {
	ct, err := t.tx.Exec(ctx,
		`UPDATE users SET balance_cents = balance_cents - $2 WHERE username=$1`,
		username, amountCents,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrUserNotFound
	}
	return nil
}

func (t *pgTx) NextTokenNo(ctx context.Context, stallID string) (int, error) {
	// Lock the stall row first: concurrent orders to the same stall
	// serialize here, so MAX+1 cannot be computed twice. Lock order is
	// always user row then stall row.
	var id int64
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM stalls WHERE stall_id=$1 FOR UPDATE`, stallID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrStallNotFound
	}
	if err != nil {
		return 0, err
	}

	var next int
	err = t.tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(token_no), 0) + 1 FROM tokens WHERE stall_id=$1`, stallID,
	).Scan(&next)
	return next, err
}

func (t *pgTx) InsertToken(ctx context.Context, tok *Token) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO tokens (token_no, stall_id, stall_name, username, total_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		tok.TokenNo, tok.StallID, tok.StallName, tok.Username, tok.TotalCents, tok.Status,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	for i, it := range tok.Items {
		_, err = t.tx.Exec(ctx, `
			INSERT INTO token_items (token_id, line_no, name, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			id, i+1, it.Name, it.Qty, it.PriceCents,
		)
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}
