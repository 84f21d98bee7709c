package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCache_SetWithTTLExpires(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock.Now))

	c.SetWithTTL("k", "v", 10*time.Millisecond)
	clock.Advance(10 * time.Millisecond)

	v, ok := c.Get("k")
	require.True(t, ok, "entry is live at exactly its ttl")
	assert.Equal(t, "v", v)

	clock.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is evicted on read")

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Evictions)
}

func TestCache_DefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := New[int](WithClock(clock.Now))
	assert.Equal(t, DefaultTTL, c.TTL())

	c.Set("k", 1)
	clock.Advance(DefaultTTL)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	custom := New[int](WithTTL(time.Minute), WithTTL(0))
	assert.Equal(t, time.Minute, custom.TTL())
}

func TestCache_Cleanup(t *testing.T) {
	clock := newFakeClock()
	c := New[int](WithClock(clock.Now), WithTTL(time.Minute))

	c.Set("short", 1)
	c.SetWithTTL("long", 2, time.Hour)
	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, c.Cleanup())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.Cleanup())

	_, ok := c.Get("long")
	assert.True(t, ok)
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New[int]()
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, Stats{}, c.Stats())
}

func TestCache_DeleteAccount(t *testing.T) {
	c := New[int]()
	c.Set(Key("equity-curve", "futures", "aa"), 1)
	c.Set(Key("day-of-week", "futures", "bb"), 2)
	c.Set(Key("equity-curve", "options", "aa"), 3)
	c.Set(Key("x:futures", "options", "cc"), 4)

	assert.Equal(t, 2, c.DeleteAccount("futures"))
	assert.Equal(t, 2, c.Len())

	_, ok := c.Get(Key("x:futures", "options", "cc"))
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "equity-curve:futures:0011", Key("equity-curve", "futures", "0011"))
	assert.Equal(t, []string{"a:b", `c\`, "d"}, SplitKey(Key("a:b", `c\`, "d")))
}

// Property: Key/SplitKey round-trips arbitrary segments.
func TestProperty_KeyRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("split reverses key", prop.ForAll(
		func(metric, account, sig string) bool {
			parts := SplitKey(Key(metric, account, sig))
			return len(parts) == 3 && parts[0] == metric && parts[1] == account && parts[2] == sig
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := Key("m", "acct", string(rune('a'+i)))
				c.Set(key, j)
				c.Get(key)
				if j%50 == 0 {
					c.DeleteAccount("acct")
					c.Cleanup()
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 8)
}
