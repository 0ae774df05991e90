package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-campus-tokens.git/internal/stalls"
)

type stallCatalog interface {
	ListWithMenu(ctx context.Context) ([]stalls.StallWithMenu, error)
}

// StallsHandler serves the public stall directory the ordering page
// renders from. No session required.
type StallsHandler struct {
	Stalls stallCatalog
}

func (h *StallsHandler) Register(r *chi.Mux) {
	r.Get("/api/stalls", h.list)
}

func (h *StallsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Stalls.ListWithMenu(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stalls")
		return
	}
	if out == nil {
		out = []stalls.StallWithMenu{}
	}
	writeJSON(w, http.StatusOK, out)
}
