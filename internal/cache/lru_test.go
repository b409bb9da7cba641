package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, 60)
	c.Set(ctx, "a", "1")
	c.Set(ctx, "b", "2")
	_, _ = c.Get(ctx, "a")
	c.Set(ctx, "c", "3")

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry is evicted")
	v, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, 2, c.Len())

	c.Set(ctx, "a", "9")
	v, _ = c.Get(ctx, "a")
	assert.Equal(t, "9", v)
}

func TestLRUExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	c := NewLRU(0, 10)
	c.now = func() time.Time { return now }
	c.Set(ctx, CoordKey(1, 2), `{"zone":"A"}`)

	now = now.Add(9 * time.Second)
	_, ok := c.Get(ctx, CoordKey(1, 2))
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get(ctx, CoordKey(1, 2))
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
