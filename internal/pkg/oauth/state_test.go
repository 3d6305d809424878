package oauth

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestStateStore_GenerateState(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	store := NewStateStore(rdb)

	state, err := store.GenerateState(context.Background(), "/dashboard")
	require.NoError(t, err)
	assert.Len(t, state, 64) // 32 bytes = 64 hex chars
	assert.Equal(t, stateTTL, mr.TTL(stateKeyPrefix+state))
}

func TestStateStore_ValidateState_Success(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	store := NewStateStore(rdb)
	ctx := context.Background()

	state, err := store.GenerateState(ctx, "/dashboard")
	require.NoError(t, err)

	returnTo, err := store.ValidateState(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", returnTo)
}

func TestStateStore_ValidateState_Consumed(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	store := NewStateStore(rdb)
	ctx := context.Background()

	state, err := store.GenerateState(ctx, "/")
	require.NoError(t, err)

	_, err = store.ValidateState(ctx, state)
	require.NoError(t, err)

	// 第二次使用同一个 state 必须失败
	_, err = store.ValidateState(ctx, state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateStore_ValidateState_Invalid(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	store := NewStateStore(rdb)

	_, err := store.ValidateState(context.Background(), "invalid-state")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = store.ValidateState(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateStore_GenerateState_Unique(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	store := NewStateStore(rdb)
	ctx := context.Background()

	states := make(map[string]bool)
	for i := 0; i < 100; i++ {
		state, err := store.GenerateState(ctx, "/")
		require.NoError(t, err)
		assert.False(t, states[state], "duplicate state generated")
		states[state] = true
	}
}

func TestSafeReturnPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/posts?page=2", "/posts?page=2"},
		{"https://evil.example.com", "/"},
		{"//evil.example.com", "/"},
		{`/\evil.example.com`, "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeReturnPath(tt.in), tt.in)
	}
}
