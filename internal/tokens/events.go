package tokens

import (
	"encoding/json"
	"time"
)

const (
	EventTokenPlaced        = "TokenPlaced"
	EventTokenStatusChanged = "TokenStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // stall_id
	Payload       json.RawMessage `json:"payload"`
}

type TokenPlacedPayload struct {
	TokenID    int64      `json:"token_id"`
	TokenNo    int        `json:"token_no"`
	StallID    string     `json:"stall_id"`
	StallName  string     `json:"stall_name"`
	Username   string     `json:"username"`
	Items      []LineItem `json:"items"`
	TotalCents int64      `json:"total_cents"`
}

type TokenStatusChangedPayload struct {
	TokenID int64  `json:"token_id"`
	StallID string `json:"stall_id"`
	Status  Status `json:"status"`
}
