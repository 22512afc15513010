// Package cache provides an optional Redis-backed idempotency fast-path
// check ahead of the authoritative message_hash UNIQUE constraint in the
// store (SPEC_FULL.md supplemented feature 3), mirroring the teacher's
// referenceID fast-path pattern in AddCredits/DeductCredits. It is purely
// an optimization: a cache miss or a disabled cache always falls through
// to the store, which remains the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/umpyre-code/beancounter/internal/store"
)

const defaultTTL = 24 * time.Hour

// IdempotencyCache caches Payment rows by message_hash. A nil
// *IdempotencyCache is valid and behaves as always-miss, so callers don't
// need to branch on whether caching is configured.
type IdempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps an existing redis client. Pass nil to disable caching
// entirely — every method becomes a no-op miss.
func New(client *redis.Client) *IdempotencyCache {
	if client == nil {
		return nil
	}
	return &IdempotencyCache{client: client, ttl: defaultTTL}
}

func key(hash []byte) string {
	return "beancounter:payment:" + string(hash)
}

// Get returns the cached Payment for hash, if present. A nil receiver, a
// connection error, or a miss are all reported as ok=false — none of them
// are treated as a hard failure since a miss always falls through to the
// store check behind this.
func (c *IdempotencyCache) Get(ctx context.Context, hash []byte) (store.Payment, bool) {
	if c == nil {
		return store.Payment{}, false
	}

	raw, err := c.client.Get(ctx, key(hash)).Bytes()
	if err != nil {
		return store.Payment{}, false
	}

	var p store.Payment
	if err := json.Unmarshal(raw, &p); err != nil {
		return store.Payment{}, false
	}
	return p, true
}

// Set stores p under its message hash. Errors are swallowed — a failed
// cache write only costs a future fast-path hit, never correctness.
func (c *IdempotencyCache) Set(ctx context.Context, p store.Payment) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	c.client.Set(ctx, key(p.MessageHash), raw, c.ttl)
}
