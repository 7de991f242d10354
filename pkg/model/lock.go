package model

import "time"

// SlotLock is an advisory lock keyed by dermatologist. Batch mutations
// take it so concurrent batches for the same practitioner cannot
// interleave their overlap checks and inserts.
type SlotLock struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}
