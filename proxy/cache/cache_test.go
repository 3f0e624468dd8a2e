package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestGetSetExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("k", "v", time.Second)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.True(t, ok, "entry is still valid exactly at its expiry")

	clock.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is removed on read")
}

func TestSetOverwrites(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("k", "old", time.Hour)
	c.Set("k", "new", time.Second)
	got, _ := c.Get("k")
	assert.Equal(t, "new", got)

	clock.Advance(2 * time.Second)
	_, ok := c.Get("k")
	assert.False(t, ok, "overwrite also resets the expiry")
}

func TestMissingKey(t *testing.T) {
	c := New()
	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestCleanupBelowThresholdKeepsExpired(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("old-%d", i), "x", time.Second)
	}
	clock.Advance(time.Minute)
	c.Set("fresh", "y", time.Hour)

	assert.Equal(t, 11, c.Len(), "no sweep below the threshold")
}

func TestCleanupSweepsOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	for i := 0; i < 600; i++ {
		c.Set(fmt.Sprintf("short-%d", i), "x", time.Second)
	}
	for i := 0; i < 500; i++ {
		c.Set(fmt.Sprintf("long-%d", i), "y", time.Hour)
	}
	// The sweep already ran while inserting, but nothing had expired yet.
	require.Equal(t, 1100, c.Len())

	clock.Advance(time.Minute)
	c.Set("trigger", "z", time.Hour)

	assert.Equal(t, 501, c.Len())
	for i := 0; i < 500; i++ {
		_, ok := c.Get(fmt.Sprintf("long-%d", i))
		require.True(t, ok, "live entry long-%d was evicted", i)
	}
	_, ok := c.Get("short-0")
	assert.False(t, ok)
}

func TestLiveEntriesAreNeverEvicted(t *testing.T) {
	c := New()
	for i := 0; i < 2500; i++ {
		c.Set(fmt.Sprintf("k-%d", i), "v", time.Hour)
	}
	assert.Equal(t, 2500, c.Len())
}

func TestDeleteAndClear(t *testing.T) {
	c := New()
	c.Set("a", "1", time.Hour)
	c.Set("b", "2", time.Hour)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k-%d", j%20)
				c.Set(key, fmt.Sprint(n), time.Minute)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, c.Len())
}
