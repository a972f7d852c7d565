package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", []string{"a"})
	entry, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, entry.Value)
	assert.False(t, entry.Timestamp.IsZero())

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCache_Expires(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Set("k", 1)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestCache_Flush(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Flush()

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.False(t, okA)
	assert.False(t, okB)
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("GET", "/x"), Key("GET", "/x"))
	assert.NotEqual(t, Key("GET", "/x"), Key("GET", "/y"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Len(t, Key(), 64)
}
