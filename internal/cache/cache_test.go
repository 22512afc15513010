package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/umpyre-code/beancounter/internal/store"
)

func TestNilCacheIsAlwaysMiss(t *testing.T) {
	var c *IdempotencyCache
	assert.Nil(t, New(nil))

	_, ok := c.Get(context.Background(), []byte("hash-1"))
	assert.False(t, ok)

	// Set on a nil receiver must not panic.
	c.Set(context.Background(), store.Payment{MessageHash: []byte("hash-1")})
}
