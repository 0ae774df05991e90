package redisx

import "time"

const (
	// Queue snapshot per stall: queue:stall:{stall_id} -> JSON array of tokens
	KeyStallQueue = "queue:stall:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLQueueCache = 30 * time.Second
	TTLDedup      = 48 * time.Hour
)
