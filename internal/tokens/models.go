package tokens

import "time"

type Status string

const (
	StatusPending Status = "Pending"
	StatusServed  Status = "Served"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusServed
}

// LineItem is a priced snapshot of one cart line. Prices are captured
// at placement time; later menu edits never touch existing tokens.
type LineItem struct {
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents"`
}

// Token is a queue ticket: numbered sequentially per stall, starting
// at 1, with no gaps (tokens are never deleted).
type Token struct {
	ID         int64      `json:"id"`
	TokenNo    int        `json:"token_no"`
	StallID    string     `json:"stall_id"`
	StallName  string     `json:"stall_name"`
	Username   string     `json:"username"`
	Items      []LineItem `json:"items"`
	TotalCents int64      `json:"total_cents"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CartTotal recomputes the total from the submitted lines. Integer
// cents, so the sum is exact.
func CartTotal(items []LineItem) int64 {
	var sum int64
	for _, it := range items {
		sum += int64(it.Qty) * it.PriceCents
	}
	return sum
}
