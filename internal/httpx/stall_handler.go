package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-campus-tokens.git/internal/auth"
	kafkax "github.com/ariefcatur/go-campus-tokens.git/internal/kafka"
	"github.com/ariefcatur/go-campus-tokens.git/internal/redisx"
	"github.com/ariefcatur/go-campus-tokens.git/internal/tokens"
)

type stallQueue interface {
	ListByStall(ctx context.Context, stallID string) ([]tokens.Token, error)
	SetStatus(ctx context.Context, tokenID int64, stallID string, status tokens.Status) (*tokens.Token, error)
}

// StallHandler serves the stall owner's queue board. Redis holds the
// queue snapshot the polling page reads; the DB stays the fallback and
// the truth.
type StallHandler struct {
	Tokens   stallQueue
	Guard    *Guard
	Redis    *redis.Client
	Producer *kafkax.Producer
	Service  string
}

func (h *StallHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(h.Guard.Require(auth.RoleStall))
		r.Get("/api/tokens/stall", h.queue)
		r.Patch("/api/tokens/stall", h.setStatus)
	})
}

func (h *StallHandler) queue(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyStallQueue, sess.StallID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	queue, err := h.Tokens.ListByStall(ctx, sess.StallID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load queue")
		return
	}
	if queue == nil {
		queue = []tokens.Token{}
	}

	if h.Redis != nil {
		if b, err := json.Marshal(queue); err == nil {
			key := fmt.Sprintf(redisx.KeyStallQueue, sess.StallID)
			_ = h.Redis.Set(ctx, key, b, redisx.TTLQueueCache).Err()
		}
	}
	writeJSON(w, http.StatusOK, queue)
}

func (h *StallHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req struct {
		TokenID int64         `json:"token_id"`
		Status  tokens.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TokenID == 0 || !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Scoped to the session's stall: a foreign token id comes back not
	// found, never forbidden.
	updated, err := h.Tokens.SetStatus(ctx, req.TokenID, sess.StallID, req.Status)
	if errors.Is(err, tokens.ErrTokenNotFound) {
		writeError(w, http.StatusNotFound, "token not found")
		return
	}
	if err != nil {
		log.Printf("set_status: %v", err)
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}

	// drop the stale snapshot; the board rebuilds it from the event
	if h.Redis != nil {
		_ = redisx.DropStallQueue(ctx, h.Redis, sess.StallID)
	}
	h.publishStatusChanged(r, updated)
	writeJSON(w, http.StatusOK, updated)
}

func (h *StallHandler) publishStatusChanged(r *http.Request, t *tokens.Token) {
	if h.Producer == nil {
		return
	}
	ev := tokens.Envelope{
		EventID:       uuid.NewString(),
		EventType:     tokens.EventTokenStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: t.StallID,
		Payload: kafkax.MustMarshal(tokens.TokenStatusChangedPayload{
			TokenID: t.ID,
			StallID: t.StallID,
			Status:  t.Status,
		}),
	}
	h.Producer.Publish(tokens.PartitionKey(t.StallID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(tokens.EventTokenStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
