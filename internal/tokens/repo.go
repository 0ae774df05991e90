package tokens

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const tokenCols = `id, token_no, stall_id, stall_name, username, total_cents, status, created_at`

// ListByUser returns a user's order history, newest first.
func (s *PG) ListByUser(ctx context.Context, username string) ([]Token, error) {
	return s.list(ctx,
		`SELECT `+tokenCols+` FROM tokens WHERE username=$1 ORDER BY created_at DESC`,
		username)
}

// ListByStall returns a stall's queue, highest token number first.
func (s *PG) ListByStall(ctx context.Context, stallID string) ([]Token, error) {
	return s.list(ctx,
		`SELECT `+tokenCols+` FROM tokens WHERE stall_id=$1 ORDER BY token_no DESC`,
		stallID)
}

// ListAll is the admin view across every stall.
func (s *PG) ListAll(ctx context.Context) ([]Token, error) {
	return s.list(ctx, `SELECT `+tokenCols+` FROM tokens ORDER BY created_at DESC`)
}

// SetStatus flips a token between Pending and Served. Scoped to the
// owning stall: a foreign or missing id both come back ErrTokenNotFound.
// Idempotent, setting the current status again is a no-op success.
func (s *PG) SetStatus(ctx context.Context, tokenID int64, stallID string, status Status) (*Token, error) {
	if !status.Valid() {
		return nil, ErrInvalidRequest
	}
	var t Token
	err := s.DB.QueryRow(ctx, `
		UPDATE tokens SET status=$1
		WHERE id=$2 AND stall_id=$3
		RETURNING `+tokenCols,
		status, tokenID, stallID,
	).Scan(&t.ID, &t.TokenNo, &t.StallID, &t.StallName, &t.Username, &t.TotalCents, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, []*Token{&t}); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PG) list(ctx context.Context, sql string, args ...any) ([]Token, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Token
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.ID, &t.TokenNo, &t.StallID, &t.StallName, &t.Username,
			&t.TotalCents, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*Token, len(out))
	for i := range out {
		refs[i] = &out[i]
	}
	if err := s.loadItems(ctx, refs); err != nil {
		return nil, err
	}
	return out, nil
}

// loadItems attaches line items in line order. Two queries joined in
// code, same as the stalls-with-menu read.
func (s *PG) loadItems(ctx context.Context, toks []*Token) error {
	if len(toks) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(toks))
	byID := make(map[int64]*Token, len(toks))
	for _, t := range toks {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}

	rows, err := s.DB.Query(ctx, `
		SELECT token_id, name, qty, price_cents FROM token_items
		WHERE token_id = ANY($1) ORDER BY token_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tokenID int64
		var it LineItem
		if err := rows.Scan(&tokenID, &it.Name, &it.Qty, &it.PriceCents); err != nil {
			return err
		}
		if t := byID[tokenID]; t != nil {
			t.Items = append(t.Items, it)
		}
	}
	return rows.Err()
}
