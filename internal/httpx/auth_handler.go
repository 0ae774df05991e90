package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-campus-tokens.git/internal/auth"
	"github.com/ariefcatur/go-campus-tokens.git/internal/stalls"
	"github.com/ariefcatur/go-campus-tokens.git/internal/wallet"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,}$`)
	pinRe      = regexp.MustCompile(`^\d{4}$`)
)

type userAccounts interface {
	Register(ctx context.Context, username, pinHash string) (string, error)
	FindByUsername(ctx context.Context, username string) (*wallet.User, error)
	FindAdmin(ctx context.Context, username string) (string, error)
}

type stallAccounts interface {
	FindForAuth(ctx context.Context, stallID, name string) (*stalls.Stall, error)
}

type AuthHandler struct {
	Users    userAccounts
	Stalls   stallAccounts
	Sessions *auth.Sessions
}

func (h *AuthHandler) Register(r *chi.Mux) {
	r.Post("/api/auth/register", h.register)
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/stall-login", h.stallLogin)
	r.Post("/api/auth/admin-login", h.adminLogin)
	r.Post("/api/auth/logout", h.logout)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		PIN      string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	if !pinRe.MatchString(req.PIN) {
		writeError(w, http.StatusBadRequest, "PIN must be 4 digits")
		return
	}
	if !usernameRe.MatchString(req.Username) {
		writeError(w, http.StatusBadRequest, "invalid username (letters, numbers, underscores, min 3 chars)")
		return
	}

	pinHash, err := auth.HashPin(req.PIN)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Register(ctx, req.Username, pinHash)
	if errors.Is(err, wallet.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "uid": uid})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		PIN      string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, wallet.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "no account found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if u.Blocked {
		writeError(w, http.StatusForbidden, "account blocked, contact admin")
		return
	}

	if !auth.CheckPin(req.PIN, u.PinHash) {
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}

	tok, err := h.Sessions.Issue(auth.Session{Role: auth.RoleUser, Username: u.Username, UID: u.UID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	http.SetCookie(w, h.Sessions.Cookie(tok))
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true, "username": u.Username, "uid": u.UID, "balance_cents": u.BalanceCents,
	})
}

func (h *AuthHandler) stallLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StallID   string `json:"stall_id"`
		StallName string `json:"stall_name"`
		PIN       string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.StallID == "" || req.StallName == "" || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.Stalls.FindForAuth(ctx, strings.TrimSpace(req.StallID), strings.TrimSpace(req.StallName))
	if errors.Is(err, stalls.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "no stall found, check ID, name and PIN")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !auth.CheckPin(req.PIN, s.PinHash) {
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}

	tok, err := h.Sessions.Issue(auth.Session{Role: auth.RoleStall, StallID: s.StallID, StallName: s.Name})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	http.SetCookie(w, h.Sessions.Cookie(tok))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stall_id": s.StallID, "stall_name": s.Name})
}

func (h *AuthHandler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	hash, err := h.Users.FindAdmin(ctx, strings.TrimSpace(req.Username))
	if err != nil || !auth.CheckPin(strings.TrimSpace(req.Password), hash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tok, err := h.Sessions.Issue(auth.Session{Role: auth.RoleAdmin, Username: req.Username})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	http.SetCookie(w, h.Sessions.Cookie(tok))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *AuthHandler) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, auth.ClearCookie())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
