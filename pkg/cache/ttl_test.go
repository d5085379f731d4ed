package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLExpiry(t *testing.T) {
	c, err := NewTTL[int](4, time.Minute)
	require.NoError(t, err)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	require.False(t, ok)
}

func TestTTLEvictsLeastRecent(t *testing.T) {
	c, err := NewTTL[string](2, time.Hour)
	require.NoError(t, err)
	c.Set("a", "x")
	c.Set("b", "y")
	c.Set("c", "z")
	_, ok := c.Get("a")
	require.False(t, ok)
	c.Purge()
	_, ok = c.Get("c")
	require.False(t, ok)
}
