package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalCache(t *testing.T) {
	c := NewLocalCache()
	ctx := context.Background()

	_, ok := c.Get(ctx, "ad:1")
	assert.False(t, ok)

	c.Set(ctx, "ad:1", []byte(`{"id":1}`))
	c.Set(ctx, "ad:2", []byte(`{"id":2}`))

	v, ok := c.Get(ctx, "ad:1")
	assert.True(t, ok)
	assert.Equal(t, `{"id":1}`, string(v))

	c.Delete(ctx, "ad:1", "ad:2", "ad:3")
	_, ok = c.Get(ctx, "ad:1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "ad:2")
	assert.False(t, ok)
}
