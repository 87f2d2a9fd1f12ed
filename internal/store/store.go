// Package store provides the shared state store: a key-value store of
// TTL-bound blobs holding job records, intermediate artifacts and binary
// outputs. There are no secondary indexes, no transactions and no multi-key
// atomicity; the orchestrator guarantees at most one writer per job record
// at a time by never dispatching two stages for the same job concurrently.
package store

import (
	"context"
	"time"
)

// Store is the contract every state store implementation satisfies.
type Store interface {
	// Get returns the value for key, or (nil, nil) if the key is absent
	// or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value under key with the given time-to-live. A zero ttl
	// stores the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Exists reports whether key holds an unexpired value.
	Exists(ctx context.Context, key string) (bool, error)
}

// RetentionTTL is the fixed window after which a job's state and artifacts
// become unavailable. Every job-record write refreshes it.
const RetentionTTL = 24 * time.Hour
