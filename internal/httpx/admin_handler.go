package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-campus-tokens.git/internal/auth"
	"github.com/ariefcatur/go-campus-tokens.git/internal/tokens"
	"github.com/ariefcatur/go-campus-tokens.git/internal/wallet"
)

type adminUsers interface {
	List(ctx context.Context) ([]wallet.User, error)
	Totals(ctx context.Context) (int, int64, error)
	TopUp(ctx context.Context, username string, amountCents int64) (int64, error)
	SetBalance(ctx context.Context, username string, amountCents int64) error
	Block(ctx context.Context, username string) error
	Unblock(ctx context.Context, username, newPinHash string) error
}

type adminTokens interface {
	ListAll(ctx context.Context) ([]tokens.Token, error)
	Overall(ctx context.Context) (*tokens.Stats, error)
	PerStall(ctx context.Context) ([]tokens.StallStats, error)
}

// AdminHandler is the operator surface. Balance actions here are
// unconditional single-row writes that bypass the ledger engine; the
// schema's non-negative check is the only guard they keep.
type AdminHandler struct {
	Users  adminUsers
	Tokens adminTokens
	Stalls stallCatalog
	Guard  *Guard
}

func (h *AdminHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(h.Guard.Require(auth.RoleAdmin))
		r.Get("/api/admin", h.get)
		r.Post("/api/admin", h.act)
	})
}

func (h *AdminHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	switch r.URL.Query().Get("resource") {
	case "users":
		users, err := h.Users.List(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load users")
			return
		}
		if users == nil {
			users = []wallet.User{}
		}
		writeJSON(w, http.StatusOK, users)

	case "tokens":
		toks, err := h.Tokens.ListAll(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load tokens")
			return
		}
		if toks == nil {
			toks = []tokens.Token{}
		}
		writeJSON(w, http.StatusOK, toks)

	case "stalls":
		out, err := h.Stalls.ListWithMenu(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load stalls")
			return
		}
		writeJSON(w, http.StatusOK, out)

	case "dashboard":
		h.dashboard(ctx, w)

	default:
		writeError(w, http.StatusBadRequest, "unknown resource")
	}
}

func (h *AdminHandler) dashboard(ctx context.Context, w http.ResponseWriter) {
	totalUsers, totalBalance, err := h.Users.Totals(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	overall, err := h.Tokens.Overall(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	perStall, err := h.Tokens.PerStall(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	byStall := map[string]tokens.StallStats{}
	for _, s := range perStall {
		byStall[s.StallID] = s
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_users":         totalUsers,
		"total_balance_cents": totalBalance,
		"total_orders":        overall.TotalOrders,
		"total_revenue_cents": overall.TotalRevenueCents,
		"pending":             overall.Pending,
		"served":              overall.Served,
		"stalls":              byStall,
	})
}

type adminActionReq struct {
	Action      string `json:"action"`
	Username    string `json:"username"`
	AmountCents int64  `json:"amount_cents"`
	NewPIN      string `json:"new_pin"`
}

func (h *AdminHandler) act(w http.ResponseWriter, r *http.Request) {
	var req adminActionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Action != "" && req.Username == "" {
		writeError(w, http.StatusBadRequest, "missing username")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var err error
	switch req.Action {
	case "topup":
		var newBalance int64
		newBalance, err = h.Users.TopUp(ctx, req.Username, req.AmountCents)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "new_balance_cents": newBalance})
			return
		}
	case "set_balance":
		err = h.Users.SetBalance(ctx, req.Username, req.AmountCents)
	case "zero":
		err = h.Users.SetBalance(ctx, req.Username, 0)
	case "block":
		err = h.Users.Block(ctx, req.Username)
	case "unblock":
		if !pinRe.MatchString(req.NewPIN) {
			writeError(w, http.StatusBadRequest, "invalid PIN")
			return
		}
		var hash string
		hash, err = auth.HashPin(req.NewPIN)
		if err == nil {
			err = h.Users.Unblock(ctx, req.Username, hash)
		}
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}

	if errors.Is(err, wallet.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("admin %s: %v", req.Action, err)
		writeError(w, http.StatusInternalServerError, "action failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
