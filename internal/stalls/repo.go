package stalls

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("stall not found")

type Stall struct {
	StallID string `json:"stall_id"`
	Name    string `json:"name"`
	PinHash string `json:"-"`
}

type MenuItem struct {
	ID         int64  `json:"id"`
	StallID    string `json:"stall_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

type StallWithMenu struct {
	Stall
	MenuItems []MenuItem `json:"menu_items"`
}

type Repo struct{ DB *pgxpool.Pool }

// ListWithMenu fetches stalls and menu items in two queries and joins
// them in code; simpler than a lateral join and the lists are tiny.
func (r *Repo) ListWithMenu(ctx context.Context) ([]StallWithMenu, error) {
	rows, err := r.DB.Query(ctx, `SELECT stall_id, name FROM stalls ORDER BY stall_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StallWithMenu
	idx := map[string]int{}
	for rows.Next() {
		var s StallWithMenu
		if err := rows.Scan(&s.StallID, &s.Name); err != nil {
			return nil, err
		}
		s.MenuItems = []MenuItem{}
		idx[s.StallID] = len(out)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := r.DB.Query(ctx,
		`SELECT id, stall_id, name, price_cents FROM menu_items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer items.Close()

	for items.Next() {
		var it MenuItem
		if err := items.Scan(&it.ID, &it.StallID, &it.Name, &it.PriceCents); err != nil {
			return nil, err
		}
		if i, ok := idx[it.StallID]; ok {
			out[i].MenuItems = append(out[i].MenuItems, it)
		}
	}
	return out, items.Err()
}

// FindForAuth matches stall id and display name together, both
// case-insensitively, the way the stall login form submits them.
func (r *Repo) FindForAuth(ctx context.Context, stallID, name string) (*Stall, error) {
	var s Stall
	err := r.DB.QueryRow(ctx,
		`SELECT stall_id, name, pin_hash FROM stalls
		 WHERE LOWER(stall_id)=LOWER($1) AND LOWER(name)=LOWER($2)`,
		stallID, name,
	).Scan(&s.StallID, &s.Name, &s.PinHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert and ReplaceMenu back the seed endpoint.

func (r *Repo) Upsert(ctx context.Context, stallID, name, pinHash string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO stalls (stall_id, name, pin_hash) VALUES ($1, $2, $3)
		ON CONFLICT (stall_id) DO UPDATE SET name=$2, pin_hash=$3`,
		stallID, name, pinHash,
	)
	return err
}

func (r *Repo) ReplaceMenu(ctx context.Context, stallID string, items []MenuItem) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM menu_items WHERE stall_id=$1`, stallID); err != nil {
		return err
	}
	for _, it := range items {
		_, err := tx.Exec(ctx,
			`INSERT INTO menu_items (stall_id, name, price_cents) VALUES ($1, $2, $3)`,
			stallID, it.Name, it.PriceCents,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
