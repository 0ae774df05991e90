package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// SeenEvent marks event id as processed for a consumer service and
// reports whether it was already there (SET NX).
func SeenEvent(ctx context.Context, rdb *redis.Client, service, eventID string) (bool, error) {
	key := fmt.Sprintf(KeyDedup, service, eventID)
	ok, err := rdb.SetNX(ctx, key, "1", TTLDedup).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// DropStallQueue invalidates the cached queue snapshot for a stall.
func DropStallQueue(ctx context.Context, rdb *redis.Client, stallID string) error {
	return rdb.Del(ctx, fmt.Sprintf(KeyStallQueue, stallID)).Err()
}
