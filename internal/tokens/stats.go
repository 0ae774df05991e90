package tokens

import "context"

type Stats struct {
	TotalOrders       int   `json:"total_orders"`
	TotalRevenueCents int64 `json:"total_revenue_cents"`
	Pending           int   `json:"pending"`
	Served            int   `json:"served"`
}

type StallStats struct {
	StallID      string `json:"stall_id"`
	StallName    string `json:"stall_name"`
	RevenueCents int64  `json:"revenue_cents"`
	Orders       int    `json:"orders"`
	Pending      int    `json:"pending"`
}

// Overall returns the admin dashboard aggregates in one round trip.
func (s *PG) Overall(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_cents), 0),
		       COUNT(*) FILTER (WHERE status='Pending'),
		       COUNT(*) FILTER (WHERE status='Served')
		FROM tokens`,
	).Scan(&st.TotalOrders, &st.TotalRevenueCents, &st.Pending, &st.Served)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PG) PerStall(ctx context.Context) ([]StallStats, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT stall_id, stall_name,
		       COALESCE(SUM(total_cents), 0),
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status='Pending')
		FROM tokens GROUP BY stall_id, stall_name ORDER BY stall_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StallStats
	for rows.Next() {
		var st StallStats
		if err := rows.Scan(&st.StallID, &st.StallName, &st.RevenueCents, &st.Orders, &st.Pending); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
