package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-campus-tokens.git/internal/redisx"
	"github.com/ariefcatur/go-campus-tokens.git/internal/tokens"
)

// QueueSource reads a stall's live queue from the system of record.
type QueueSource interface {
	ListByStall(ctx context.Context, stallID string) ([]tokens.Token, error)
}

// Service consumes token lifecycle events and keeps the per-stall
// queue snapshot warm in redis, so the polling stall and user pages
// read the cache instead of hitting Postgres on every tick.
type Service struct {
	Source      QueueSource
	Redis       *redis.Client
	ServiceName string
}

// HandleTokenEvent is the consumer handler for both token topics.
func (s *Service) HandleTokenEvent(ctx context.Context, m kafkago.Message) error {
	var env tokens.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	switch env.EventType {
	case tokens.EventTokenPlaced, tokens.EventTokenStatusChanged:
	default:
		return nil // ignore
	}

	seen, err := redisx.SeenEvent(ctx, s.Redis, s.ServiceName, env.EventID)
	if err != nil {
		// dedup is best-effort; refreshing twice is harmless
		log.Printf("dedup check: %v", err)
	}
	if seen {
		return nil
	}

	stallID := env.CorrelationID
	if stallID == "" {
		return nil
	}
	return s.Refresh(ctx, stallID)
}

// Refresh rebuilds one stall's snapshot from Postgres.
func (s *Service) Refresh(ctx context.Context, stallID string) error {
	queue, err := s.Source.ListByStall(ctx, stallID)
	if err != nil {
		return err
	}
	if queue == nil {
		queue = []tokens.Token{}
	}
	b, err := json.Marshal(queue)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(redisx.KeyStallQueue, stallID)
	return s.Redis.Set(ctx, key, b, redisx.TTLQueueCache).Err()
}
