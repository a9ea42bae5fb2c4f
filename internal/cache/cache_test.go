package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Local(t *testing.T) {
	ctx := context.Background()
	c := New("", "", 0)
	assert.Equal(t, "memory", c.Backend())
	require.NoError(t, c.Ping(ctx))

	got, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	value := []byte("hello")
	require.NoError(t, c.Set(ctx, "greeting", value, time.Minute))
	value[0] = 'j'

	got, err = c.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	require.NoError(t, c.Delete(ctx, "greeting"))
	got, _ = c.Get(ctx, "greeting")
	assert.Nil(t, got)
}

func TestClient_LocalExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(10)

	require.NoError(t, c.Set(ctx, "short", []byte("x"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	got, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_NilIsSafe(t *testing.T) {
	ctx := context.Background()
	var c *Client

	assert.Equal(t, "none", c.Backend())
	got, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.Close())
}

func TestClient_RedisUnavailableBehavesAsMiss(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// nothing listens on port 1
	c := New("127.0.0.1:1", "", 0)
	defer c.Close()

	assert.Equal(t, "redis", c.Backend())
	assert.Error(t, c.Ping(ctx))
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_LocalHonoursLongTTL(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(10)
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "session", []byte("s"), 48*time.Hour))
	require.NoError(t, c.SetPinned(ctx, "refresh", []byte("r"), 7*24*time.Hour))

	now = now.Add(36 * time.Hour)
	got, _ := c.Get(ctx, "session")
	assert.Equal(t, []byte("s"), got)
	got, _ = c.Get(ctx, "refresh")
	assert.Equal(t, []byte("r"), got)

	now = now.Add(13 * time.Hour)
	got, _ = c.Get(ctx, "session")
	assert.Nil(t, got)
	got, _ = c.Get(ctx, "refresh")
	assert.Equal(t, []byte("r"), got)

	now = now.Add(7 * 24 * time.Hour)
	got, _ = c.Get(ctx, "refresh")
	assert.Nil(t, got)
}

func TestClient_PinnedSurvivesCapacityEviction(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(2)

	require.NoError(t, c.SetPinned(ctx, "blacklist:a", []byte("1"), time.Hour))
	for i := 0; i < 10; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Hour))
	}

	got, _ := c.Get(ctx, "blacklist:a")
	assert.Equal(t, []byte("1"), got)
	got, _ = c.Get(ctx, "k0")
	assert.Nil(t, got, "unpinned entries are still bounded")

	require.NoError(t, c.Delete(ctx, "blacklist:a"))
	got, _ = c.Get(ctx, "blacklist:a")
	assert.Nil(t, got)
}

func TestClient_GetDel(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(10)

	require.NoError(t, c.SetPinned(ctx, "once", []byte("x"), time.Minute))
	require.NoError(t, c.Set(ctx, "plain", []byte("y"), time.Minute))

	var wg sync.WaitGroup
	var hits atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, _ := c.GetDel(ctx, "once"); v != nil {
				hits.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), hits.Load())

	got, err := c.GetDel(ctx, "plain")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), got)
	got, _ = c.GetDel(ctx, "plain")
	assert.Nil(t, got)

	var nilClient *Client
	got, err = nilClient.GetDel(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, got)
}
