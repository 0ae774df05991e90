package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-campus-tokens.git/internal/auth"
	kafkax "github.com/ariefcatur/go-campus-tokens.git/internal/kafka"
	"github.com/ariefcatur/go-campus-tokens.git/internal/tokens"
)

type orderPlacer interface {
	PlaceOrder(ctx context.Context, req tokens.PlaceOrderRequest) (*tokens.Placement, error)
}

type tokenHistory interface {
	ListByUser(ctx context.Context, username string) ([]tokens.Token, error)
}

type balanceReader interface {
	Balance(ctx context.Context, username string) (int64, error)
}

// OrdersHandler serves the user-facing wallet routes. Producer may be
// nil (tests); events fire only after a successful commit.
type OrdersHandler struct {
	Ledger   orderPlacer
	Tokens   tokenHistory
	Wallet   balanceReader
	Guard    *Guard
	Producer *kafkax.Producer
	Service  string
}

type placeOrderReq struct {
	StallID    string            `json:"stall_id"`
	StallName  string            `json:"stall_name"`
	Items      []tokens.LineItem `json:"items"`
	TotalCents int64             `json:"total_cents"`
	PIN        string            `json:"pin"`
}

type placeOrderResp struct {
	TokenNo         int   `json:"token_no"`
	NewBalanceCents int64 `json:"new_balance_cents"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(h.Guard.Require(auth.RoleUser))
		r.Get("/api/users/balance", h.balance)
		r.Get("/api/tokens", h.myTokens)
		r.Post("/api/tokens", h.placeOrder)
	})
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.StallID == "" || len(req.Items) == 0 || req.TotalCents <= 0 || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pl, err := h.Ledger.PlaceOrder(ctx, tokens.PlaceOrderRequest{
		Username:   sess.Username,
		StallID:    req.StallID,
		StallName:  req.StallName,
		Items:      req.Items,
		TotalCents: req.TotalCents,
		PIN:        req.PIN,
	})
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	h.publishPlaced(r, sess.Username, req, pl)
	writeJSON(w, http.StatusOK, placeOrderResp{TokenNo: pl.TokenNo, NewBalanceCents: pl.NewBalanceCents})
}

func (h *OrdersHandler) writeOrderError(w http.ResponseWriter, err error) {
	var insuf *tokens.InsufficientFundsError
	switch {
	case errors.As(err, &insuf):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "insufficient balance", "balance_cents": insuf.BalanceCents,
		})
	case errors.Is(err, tokens.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid order")
	case errors.Is(err, tokens.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, tokens.ErrStallNotFound):
		writeError(w, http.StatusNotFound, "stall not found")
	case errors.Is(err, tokens.ErrAccountBlocked):
		writeError(w, http.StatusForbidden, "account blocked")
	case errors.Is(err, tokens.ErrWrongPIN):
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
	default:
		// full detail stays server-side
		log.Printf("place_order: %v", err)
		writeError(w, http.StatusInternalServerError, "order failed")
	}
}

func (h *OrdersHandler) publishPlaced(r *http.Request, username string, req placeOrderReq, pl *tokens.Placement) {
	if h.Producer == nil {
		return
	}
	ev := tokens.Envelope{
		EventID:       uuid.NewString(),
		EventType:     tokens.EventTokenPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: req.StallID,
		Payload: kafkax.MustMarshal(tokens.TokenPlacedPayload{
			TokenID:    pl.TokenID,
			TokenNo:    pl.TokenNo,
			StallID:    req.StallID,
			StallName:  req.StallName,
			Username:   username,
			Items:      req.Items,
			TotalCents: req.TotalCents,
		}),
	}
	h.Producer.Publish(tokens.PartitionKey(req.StallID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(tokens.EventTokenPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) myTokens(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	toks, err := h.Tokens.ListByUser(ctx, sess.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load tokens")
		return
	}
	if toks == nil {
		toks = []tokens.Token{}
	}
	writeJSON(w, http.StatusOK, toks)
}

func (h *OrdersHandler) balance(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	b, err := h.Wallet.Balance(ctx, sess.Username)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance_cents": b})
}
