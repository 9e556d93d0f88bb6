// Package kvstore wraps the external expiring key-value collaborator.
//
// The raw store accepts writes with an absolute expiration and enforces a
// documented minimum TTL, rejecting writes below it. The Adapter is the only
// permitted write path: it computes the absolute expiration once and clamps
// it above the minimum, so no caller can race the store's floor.
package kvstore

import (
	"context"
	"time"
)

// KV is the raw expiring key-value collaborator. Every entry carries an
// absolute expiration; the store rejects writes whose expiration falls below
// its minimum TTL.
type KV interface {
	// PutAt writes value under key, expiring at the given absolute time.
	PutAt(ctx context.Context, key string, value []byte, expiresAt time.Time) error

	// Get returns the value for key, or errors.ErrNotFound if the key is
	// absent or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
