package ratelimit

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setupLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *fakeClock) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewLimiter(rdb, "ratelimit:anon", limit, window, WithClock(clock.Now)), clock
}

func TestLimiter_SlidingWindow(t *testing.T) {
	limiter, clock := setupLimiter(t, 2, 5*time.Minute)
	ctx := context.Background()
	start := clock.Now()
	fp := Fingerprint("1.2.3.4", "Mozilla/5.0", 32)

	res, err := limiter.Allow(ctx, fp)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	clock.Advance(time.Minute)
	res, err = limiter.Allow(ctx, fp)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	clock.Advance(time.Minute)
	res, err = limiter.Allow(ctx, fp)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.True(t, start.Add(5*time.Minute).Equal(res.ResetAt), "reset at %s", res.ResetAt)

	// 第一条记录滑出窗口后放行
	clock.Advance(3*time.Minute + time.Second)
	res, err = limiter.Allow(ctx, fp)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_RejectedCallsDoNotExtendWindow(t *testing.T) {
	limiter, clock := setupLimiter(t, 1, time.Minute)
	ctx := context.Background()

	res, err := limiter.Allow(ctx, "fp")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		res, err = limiter.Allow(ctx, "fp")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
	}

	clock.Advance(11 * time.Second)
	res, err = limiter.Allow(ctx, "fp")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_SeparateFingerprints(t *testing.T) {
	limiter, _ := setupLimiter(t, 1, time.Minute)
	ctx := context.Background()

	res, err := limiter.Allow(ctx, Fingerprint("1.1.1.1", "ua", 32))
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(ctx, Fingerprint("2.2.2.2", "ua", 32))
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_ZeroLimit(t *testing.T) {
	limiter, _ := setupLimiter(t, 0, time.Minute)

	res, err := limiter.Allow(context.Background(), "fp")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestFingerprint(t *testing.T) {
	ua := strings.Repeat("a", 40)
	assert.Equal(t, "1.2.3.4|"+strings.Repeat("a", 32), Fingerprint("1.2.3.4", ua, 32))
	assert.Equal(t, "1.2.3.4|short", Fingerprint("1.2.3.4", "short", 32))
	// 只有 UA 尾部不同的调用方视为同一来源
	assert.Equal(t, Fingerprint("ip", ua+"x", 32), Fingerprint("ip", ua+"y", 32))
}
