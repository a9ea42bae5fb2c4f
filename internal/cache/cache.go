package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const (
	localSize = 10000
	// pinned entries are swept for expiry once this many have been added
	pinnedSweepEvery = 1024
)

type localEntry struct {
	value   []byte
	expires time.Time
}

// Client wraps redis.Client but fails safe by swallowing connectivity errors.
// Without a redis address it keeps entries in a bounded in-process LRU, plus
// an unbounded map for pinned entries that must survive until their TTL.
type Client struct {
	client *redis.Client
	local  *expirable.LRU[string, localEntry]

	mu     sync.Mutex
	pinned map[string]localEntry
	added  int
	now    func() time.Time
}

// New creates a Redis-backed client, or an in-process one when addr is empty.
func New(addr, password string, db int) *Client {
	if addr == "" {
		return NewLocal(localSize)
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{client: redis.NewClient(opts)}
}

// NewLocal creates an in-process client holding at most size entries.
func NewLocal(size int) *Client {
	// entries carry their own expiry; the LRU itself only bounds capacity
	return &Client{
		local:  expirable.NewLRU[string, localEntry](size, nil, 0),
		pinned: make(map[string]localEntry),
		now:    time.Now,
	}
}

// Backend names the storage in use.
func (c *Client) Backend() string {
	switch {
	case c == nil:
		return "none"
	case c.client != nil:
		return "redis"
	default:
		return "memory"
	}
}

// Ping checks redis connectivity. The in-process backend is always reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Get returns value or nil if missing or redis unavailable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	if c.client == nil {
		return c.localGet(key), nil
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		// fail safe: behave like cache miss
		return nil, nil
	}
	return res, nil
}

// Set stores value with TTL, ignoring redis errors.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	if c.client == nil {
		c.localSet(key, value, ttl)
		return nil
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		// fail safe: ignore redis errors
		return nil
	}
	return nil
}

// Delete removes a key, ignoring redis errors.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	if c.client == nil {
		c.localTake(key)
		return nil
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return nil
	}
	return nil
}

// SetPinned stores value with TTL like Set, but the in-process backend never
// evicts it for capacity. Use it for entries whose loss changes behaviour,
// such as revocations.
func (c *Client) SetPinned(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	if c.client != nil {
		return c.Set(ctx, key, value, ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.local != nil {
		c.local.Remove(key)
	}
	c.pinned[key] = c.entry(value, ttl)
	c.added++
	if c.added%pinnedSweepEvery == 0 {
		now := c.now()
		for k, e := range c.pinned {
			if e.expired(now) {
				delete(c.pinned, k)
			}
		}
	}
	return nil
}

// GetDel returns value and removes it in one step, so concurrent callers
// cannot both observe it. Missing keys and redis errors return nil.
func (c *Client) GetDel(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	if c.client == nil {
		return c.localTake(key), nil
	}
	res, err := c.client.GetDel(ctx, key).Bytes()
	if err != nil {
		// redis.Nil or unavailable: behave like a miss
		return nil, nil
	}
	return res, nil
}

// Close releases the redis connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (e localEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

func (c *Client) entry(value []byte, ttl time.Duration) localEntry {
	e := localEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	return e
}

func (c *Client) localGet(key string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if e, ok := c.pinned[key]; ok {
		if e.expired(now) {
			delete(c.pinned, key)
			return nil
		}
		return e.value
	}
	if c.local == nil {
		return nil
	}
	e, ok := c.local.Get(key)
	if !ok {
		return nil
	}
	if e.expired(now) {
		c.local.Remove(key)
		return nil
	}
	return e.value
}

func (c *Client) localSet(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pinned, key)
	if c.local != nil {
		c.local.Add(key, c.entry(value, ttl))
	}
}

// localTake removes key from both tiers and returns its live value, if any.
func (c *Client) localTake(key string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if e, ok := c.pinned[key]; ok {
		delete(c.pinned, key)
		if e.expired(now) {
			return nil
		}
		return e.value
	}
	if c.local == nil {
		return nil
	}
	e, ok := c.local.Peek(key)
	if !ok {
		return nil
	}
	c.local.Remove(key)
	if e.expired(now) {
		return nil
	}
	return e.value
}
