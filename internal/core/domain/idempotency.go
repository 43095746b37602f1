package domain

import "time"

// DefaultIdempotencyTTL is how long a completed job result is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyRecord is the stored outcome of a side-effecting operation.
type IdempotencyRecord struct {
	Key       string    `json:"key"`
	Result    []byte    `json:"result"`
	ExpiresAt time.Time `json:"expiresAt"`
}
