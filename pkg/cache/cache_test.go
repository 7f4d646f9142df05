package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute, 0)
	c.Set("k", "v")

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiration(t *testing.T) {
	c := New(time.Minute, 0)
	c.SetWithTTL("k", "v", 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := New(10*time.Millisecond, 0)
	c.SetWithTTL("k", "v", 0)

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("k")
	assert.True(t, ok)
}
