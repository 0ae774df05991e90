package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const userCols = `id, uid, username, balance_cents, blocked, created_at`

// Register inserts a new user with zero balance and a sequential
// UID_NNNN. The unique index on lower(username) is the real duplicate
// guard; the pre-check only gives a friendlier fast path.
func (r *Repo) Register(ctx context.Context, username, pinHash string) (string, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username)=LOWER($1))`, username,
	).Scan(&exists)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrUsernameTaken
	}

	var count int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return "", err
	}
	uid := fmt.Sprintf("UID_%04d", count+1)

	_, err = r.DB.Exec(ctx,
		`INSERT INTO users (uid, username, pin_hash, balance_cents) VALUES ($1, $2, $3, 0)`,
		uid, username, pinHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrUsernameTaken
		}
		return "", err
	}
	return uid, nil
}

// FindByUsername also loads the PIN hash for login verification; the
// hash never serializes (json:"-").
func (r *Repo) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.DB.QueryRow(ctx,
		`SELECT `+userCols+`, pin_hash FROM users WHERE LOWER(username)=LOWER($1)`, username,
	).Scan(&u.ID, &u.UID, &u.Username, &u.BalanceCents, &u.Blocked, &u.CreatedAt, &u.PinHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Balance(ctx context.Context, username string) (int64, error) {
	var b int64
	err := r.DB.QueryRow(ctx,
		`SELECT balance_cents FROM users WHERE LOWER(username)=LOWER($1)`, username,
	).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return b, err
}

func (r *Repo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY uid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.UID, &u.Username, &u.BalanceCents, &u.Blocked, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// The administrative overrides below bypass the ledger engine on
// purpose: single-row writes, no PIN check, operator-only.

func (r *Repo) TopUp(ctx context.Context, username string, amountCents int64) (int64, error) {
	var newBalance int64
	err := r.DB.QueryRow(ctx,
		`UPDATE users SET balance_cents = balance_cents + $2
		 WHERE LOWER(username)=LOWER($1) RETURNING balance_cents`,
		username, amountCents,
	).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return newBalance, err
}

func (r *Repo) SetBalance(ctx context.Context, username string, amountCents int64) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE users SET balance_cents=$2 WHERE LOWER(username)=LOWER($1)`,
		username, amountCents,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Block(ctx context.Context, username string) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE users SET blocked=TRUE WHERE LOWER(username)=LOWER($1)`, username)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Unblock also forces a fresh PIN; the old one is assumed compromised.
func (r *Repo) Unblock(ctx context.Context, username, newPinHash string) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE users SET blocked=FALSE, pin_hash=$2 WHERE LOWER(username)=LOWER($1)`,
		username, newPinHash,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Totals backs the admin dashboard header.
func (r *Repo) Totals(ctx context.Context) (totalUsers int, totalBalanceCents int64, err error) {
	err = r.DB.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(balance_cents), 0) FROM users`,
	).Scan(&totalUsers, &totalBalanceCents)
	return totalUsers, totalBalanceCents, err
}

func (r *Repo) FindAdmin(ctx context.Context, username string) (passwordHash string, err error) {
	err = r.DB.QueryRow(ctx,
		`SELECT password_hash FROM admins WHERE username=$1`, username,
	).Scan(&passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return passwordHash, err
}

func (r *Repo) UpsertAdmin(ctx context.Context, username, passwordHash string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO admins (username, password_hash) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET password_hash=$2`,
		username, passwordHash,
	)
	return err
}
