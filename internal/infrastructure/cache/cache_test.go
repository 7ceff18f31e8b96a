package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Year  int      `json:"year"`
	Names []string `json:"names"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	t.Run("miss", func(t *testing.T) {
		var got payload
		found, err := c.Get(ctx, "absent", &got)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("set and get returns a copy", func(t *testing.T) {
		in := payload{Year: 2024, Names: []string{"a"}}
		require.NoError(t, c.Set(ctx, "k", in, 0))
		in.Names[0] = "mutated"

		var got payload
		found, err := c.Get(ctx, "k", &got)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 2024, got.Year)
		assert.Equal(t, []string{"a"}, got.Names)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "x", payload{Year: 1}, 0))
		require.NoError(t, c.Delete(ctx, "x", "never-set"))
		var got payload
		found, _ := c.Get(ctx, "x", &got)
		assert.False(t, found)
	})

	t.Run("expires", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", payload{Year: 1}, 10*time.Millisecond))
		time.Sleep(30 * time.Millisecond)
		var got payload
		found, _ := c.Get(ctx, "short", &got)
		assert.False(t, found)
	})

	t.Run("corrupted entry is a miss", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "bad", "not an object", 0))
		var got payload
		found, err := c.Get(ctx, "bad", &got)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestNew(t *testing.T) {
	c, err := New(BackendMemory, nil, "dash:", time.Minute, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	_, err = New(BackendRedis, nil, "dash:", time.Minute, zap.NewNop())
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	c, err = New(BackendRedis, client, "dash:", time.Minute, zap.NewNop())
	require.NoError(t, err)
	rc, ok := c.(*RedisCache)
	require.True(t, ok)
	assert.Equal(t, "dash:2024", rc.key("2024"))
	assert.Equal(t, time.Minute, rc.defaultTTL)

	_, err = New("memcached", nil, "", 0, zap.NewNop())
	assert.Error(t, err)
}
