package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New[int](time.Minute, 10)
	_, ok := c.Get("a")
	require.False(t, ok)

	c.Set("a", 1)
	got, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, got)

	c.Set("a", 2)
	got, _ = c.Get("a")
	require.Equal(t, 2, got)
	require.Equal(t, 1, c.Len())
}

func TestExpiry(t *testing.T) {
	c := New[string](30*time.Millisecond, 10)
	c.Set("a", "x")

	got, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, "x", got)

	time.Sleep(50 * time.Millisecond)
	_, ok = c.Get("a")
	require.False(t, ok)
	// the stale entry is evicted on the failed Get
	require.Equal(t, 0, c.Len())
}

func TestCapacityEvictsOldestInserted(t *testing.T) {
	c := New[int](time.Minute, 2)
	c.Set("old", 1)
	time.Sleep(5 * time.Millisecond)
	c.Set("mid", 2)
	time.Sleep(5 * time.Millisecond)
	c.Set("new", 3)

	require.Equal(t, 2, c.Len())
	_, ok := c.Get("old")
	require.False(t, ok, "oldest-inserted entry should have been evicted")
	_, ok = c.Get("mid")
	require.True(t, ok)
	_, ok = c.Get("new")
	require.True(t, ok)
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c := New[int](time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3) // overwrite, still at capacity

	require.Equal(t, 2, c.Len())
	got, ok := c.Get("b")
	require.True(t, ok)
	require.Equal(t, 2, got)
}

func TestClear(t *testing.T) {
	c := New[int](time.Minute, 10)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	require.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute, 100)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%20)
				c.Set(key, i*1000+j)
				c.Get(key)
			}
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, c.Len(), 20)
}
