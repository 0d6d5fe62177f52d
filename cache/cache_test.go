package cache_test

import (
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-movie-server/cache"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, ttl time.Duration, maxEntries int) (*cache.Cache[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return cache.New(ttl, maxEntries, cache.WithNowTime[string](clock.Now)), clock
}

func TestCache_ExpiresAtTTL(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 10)
	c.Set("k", "v")

	clock.Advance(59 * time.Second)
	got, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", got)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	require.False(t, ok, "entry must be absent once now >= expiry")
	require.Equal(t, 0, c.Len(), "expired entry is removed on read")
}

func TestCache_TTLOverride(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 10)
	c.SetWithTTL("short", "v", 5*time.Second)
	c.Set("default", "v")

	clock.Advance(5 * time.Second)
	_, ok := c.Get("short")
	require.False(t, ok)
	_, ok = c.Get("default")
	require.True(t, ok)
}

func TestCache_EvictsOldestInserted(t *testing.T) {
	const max = 3
	c, _ := newTestCache(t, time.Hour, max)

	for i := 0; i <= max; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
		require.LessOrEqual(t, c.Len(), max)
	}

	_, ok := c.Get("k0")
	require.False(t, ok, "earliest inserted key is evicted")
	for i := 1; i <= max; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		require.True(t, ok)
	}
}

func TestCache_ReadDoesNotRefreshPosition(t *testing.T) {
	c, _ := newTestCache(t, time.Hour, 2)
	c.Set("a", "1")
	c.Set("b", "2")

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", "3")
	_, ok = c.Get("a")
	require.False(t, ok, "eviction follows insertion order, not recency")
}

func TestCache_OverwriteKeepsInsertionOrder(t *testing.T) {
	c, _ := newTestCache(t, time.Hour, 2)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "updated")
	c.Set("c", "3")

	_, ok := c.Get("a")
	require.False(t, ok)
	got, ok := c.Get("b")
	require.True(t, ok)
	require.Equal(t, "2", got)
}

func TestCache_EmptyKeyIsNoop(t *testing.T) {
	c, _ := newTestCache(t, time.Hour, 2)
	c.Set("", "v")
	require.Equal(t, 0, c.Len())
	_, ok := c.Get("")
	require.False(t, ok)
}

func TestCache_Delete(t *testing.T) {
	c, _ := newTestCache(t, time.Hour, 2)
	c.Set("a", "1")
	c.Delete("a")
	c.Delete("missing")
	require.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := cache.New[int](time.Minute, 50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("%d-%d", n, j%60)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	require.LessOrEqual(t, c.Len(), 50)
}

func TestNormalizeQuery(t *testing.T) {
	a := url.Values{"Query": {"Alien"}, "page": {"2"}, "api_key": {"secret"}}
	b := url.Values{"page": {"2"}, "query": {"Alien"}, "API_KEY": {"other"}}

	ka := cache.NormalizeQuery(a, "api_key")
	kb := cache.NormalizeQuery(b, "api_key")
	require.Equal(t, ka, kb)
	require.Equal(t, "page=2&query=Alien", ka)
	require.NotContains(t, ka, "secret")
}
