package models

// KeyType names one of the two pagination boundaries.
type KeyType string

const (
	// KeyAfter is the id of the newest item fetched going forward.
	KeyAfter KeyType = "AFTER"
	// KeyBefore is the id of the oldest item fetched so far; the append cursor.
	KeyBefore KeyType = "BEFORE"
)

// RemoteKey is the single persisted record for one direction.
type RemoteKey struct {
	Type KeyType
	ID   int64
}
