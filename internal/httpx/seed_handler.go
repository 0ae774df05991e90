package httpx

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-campus-tokens.git/internal/auth"
	"github.com/ariefcatur/go-campus-tokens.git/internal/stalls"
)

type seedStalls interface {
	Upsert(ctx context.Context, stallID, name, pinHash string) error
	ReplaceMenu(ctx context.Context, stallID string, items []stalls.MenuItem) error
}

type seedAdmins interface {
	UpsertAdmin(ctx context.Context, username, passwordHash string) error
}

// SeedHandler provisions the demo stalls and the admin account. Gated
// by a shared secret instead of a session, so a fresh deployment can
// bootstrap itself.
type SeedHandler struct {
	Stalls        seedStalls
	Admins        seedAdmins
	Secret        string
	AdminUsername string
	AdminPassword string
}

type seedStall struct {
	stallID string
	name    string
	pin     string
	menu    []stalls.MenuItem
}

var demoStalls = []seedStall{
	{"S101", "Tasty Bites", "2134", []stalls.MenuItem{
		{Name: "Burger", PriceCents: 8000},
		{Name: "Sandwich", PriceCents: 6000},
		{Name: "French Fries", PriceCents: 4000},
		{Name: "Cold Coffee", PriceCents: 5000},
	}},
	{"S102", "Spice Junction", "1234", []stalls.MenuItem{
		{Name: "Biryani", PriceCents: 12000},
		{Name: "Paneer Roll", PriceCents: 9000},
		{Name: "Lassi", PriceCents: 4000},
		{Name: "Gulab Jamun", PriceCents: 3000},
	}},
	{"S103", "Sweet Treats", "4321", []stalls.MenuItem{
		{Name: "Ice Cream", PriceCents: 5000},
		{Name: "Brownie", PriceCents: 6000},
		{Name: "Waffles", PriceCents: 8000},
		{Name: "Milkshake", PriceCents: 7000},
	}},
}

func (h *SeedHandler) Register(r *chi.Mux) {
	r.Post("/api/seed", h.seed)
}

func (h *SeedHandler) seed(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("secret")
	if h.Secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.Secret)) != 1 {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	seeded := []string{}
	for _, s := range demoStalls {
		pinHash, err := auth.HashPin(s.pin)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "seed failed")
			return
		}
		if err := h.Stalls.Upsert(ctx, s.stallID, s.name, pinHash); err != nil {
			log.Printf("seed stall %s: %v", s.stallID, err)
			writeError(w, http.StatusInternalServerError, "seed failed")
			return
		}
		if err := h.Stalls.ReplaceMenu(ctx, s.stallID, s.menu); err != nil {
			log.Printf("seed menu %s: %v", s.stallID, err)
			writeError(w, http.StatusInternalServerError, "seed failed")
			return
		}
		seeded = append(seeded, s.stallID)
	}

	if h.AdminPassword != "" {
		hash, err := auth.HashPin(h.AdminPassword)
		if err == nil {
			err = h.Admins.UpsertAdmin(ctx, h.AdminUsername, hash)
		}
		if err != nil {
			log.Printf("seed admin: %v", err)
			writeError(w, http.StatusInternalServerError, "seed failed")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stalls": seeded})
}
