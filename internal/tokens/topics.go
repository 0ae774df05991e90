package tokens

const (
	TopicTokenPlaced        = "token.placed"
	TopicTokenStatusChanged = "token.status_changed"
)

// Partition key = stall_id so one stall's queue updates stay ordered.
func PartitionKey(stallID string) []byte { return []byte(stallID) }
