package resolver

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/krishnapaul242/gati-sub004"
)

// cacheKey ties a resolution to the (path, query, header) triple plus the
// registry generation at lookup time, so a Register/Tag/Untag call
// invalidates every entry computed against the stale topology without the
// cache needing to track individual affected keys (spec §4.3 "cache keys
// ... invalidated wholesale on registry generation change").
type cacheKey struct {
	path       string
	queryVal   string
	headerVal  string
	generation uint64
}

type cacheEntry struct {
	key   cacheKey
	value Resolution
}

// fifoCache is a bounded, strict first-in-first-out cache: unlike an LRU,
// a hit never moves an entry within the eviction order. The Resolver's
// cache is specified as FIFO, not LRU (distinct from the Registry's GetAt
// memoization, which is LRU).
type fifoCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[cacheKey]*list.Element
}

func newFIFOCache(capacity int) *fifoCache {
	return &fifoCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[cacheKey]*list.Element, capacity),
	}
}

func (c *fifoCache) Get(key cacheKey) (Resolution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[key]
	if !ok {
		return Resolution{}, false
	}
	return el.Value.(*cacheEntry).value, true
}

func (c *fifoCache) Put(key cacheKey, value Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		el.Value.(*cacheEntry).value = value
		return
	}

	if c.capacity > 0 && c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.index, oldest.Value.(*cacheEntry).key)
		}
	}

	el := c.order.PushBack(&cacheEntry{key: key, value: value})
	c.index[key] = el
}

func (c *fifoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// l2Cache is the optional Redis-backed second tier, consulted on an L1
// miss and populated on an L1 store, mirroring the teacher's two-tier
// template cache (in-process LRU in front of Redis).
type l2Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func newL2Cache(client *redis.Client, prefix string, ttl time.Duration) *l2Cache {
	return &l2Cache{client: client, prefix: prefix, ttl: ttl}
}

type l2Payload struct {
	RID    timescape.RID `json:"rid"`
	Source Source        `json:"source"`
}

func (c *l2Cache) redisKey(key cacheKey) string {
	return fmt.Sprintf("%s%s\x00%s\x00%s\x00%d", c.prefix, key.path, key.queryVal, key.headerVal, key.generation)
}

func (c *l2Cache) Get(ctx context.Context, key cacheKey) (Resolution, bool) {
	if c == nil || c.client == nil {
		return Resolution{}, false
	}
	raw, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		return Resolution{}, false
	}
	var p l2Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Resolution{}, false
	}
	return Resolution{RID: p.RID, Source: p.Source}, true
}

func (c *l2Cache) Put(ctx context.Context, key cacheKey, value Resolution) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(l2Payload{RID: value.RID, Source: value.Source})
	if err != nil {
		return
	}
	c.client.Set(ctx, c.redisKey(key), raw, c.ttl)
}
