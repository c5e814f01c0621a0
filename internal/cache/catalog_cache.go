package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/GTDGit/jewel_catalog/internal/models"
)

// CatalogKey is the Redis key holding the product view snapshot.
const CatalogKey = "catalog:products"

// BuildFunc produces a complete product view. It never fails; on upstream
// trouble it returns a fallback view.
type BuildFunc func(ctx context.Context) []models.Product

// CatalogCache holds the merged product view. The returned slice is shared
// between readers and must not be mutated.
type CatalogCache interface {
	Get(ctx context.Context) []models.Product
	Invalidate(ctx context.Context) error
}

// KV is the subset of RedisClient used by RedisCatalogCache.
type KV interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}

// MemoryCatalogCache keeps one snapshot per process.
type MemoryCatalogCache struct {
	build BuildFunc
	ttl   time.Duration
	now   func() time.Time

	mu       sync.RWMutex
	products []models.Product
	builtAt  time.Time
	valid    bool
	gen      uint64

	group singleflight.Group
}

// NewMemoryCatalogCache creates an in-process catalog cache. A ttl <= 0 disables caching.
func NewMemoryCatalogCache(build BuildFunc, ttl time.Duration) *MemoryCatalogCache {
	return &MemoryCatalogCache{build: build, ttl: ttl, now: time.Now}
}

// Get returns the cached snapshot or builds a new one on miss or expiry.
func (c *MemoryCatalogCache) Get(ctx context.Context) []models.Product {
	c.mu.RLock()
	if c.valid && c.now().Sub(c.builtAt) < c.ttl {
		p := c.products
		c.mu.RUnlock()
		return p
	}
	gen := c.gen
	c.mu.RUnlock()

	// Keyed by generation so a caller arriving after Invalidate never joins a stale build.
	v, _, _ := c.group.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		products := c.build(context.WithoutCancel(ctx))
		c.store(gen, products)
		return products, nil
	})
	return v.([]models.Product)
}

// store publishes products unless an invalidation happened after the build started.
func (c *MemoryCatalogCache) store(gen uint64, products []models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		log.Debug().Uint64("gen", gen).Msg("discarding catalog built before invalidation")
		return
	}
	c.products = products
	c.builtAt = c.now()
	c.valid = true
}

// Invalidate drops the snapshot. The next Get rebuilds.
func (c *MemoryCatalogCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	c.valid = false
	c.products = nil
	c.mu.Unlock()
	return nil
}

// BuiltAt returns when the current snapshot was built, zero if none.
func (c *MemoryCatalogCache) BuiltAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid {
		return time.Time{}
	}
	return c.builtAt
}

// catalogSnapshot is the JSON document stored in Redis.
type catalogSnapshot struct {
	BuiltAt  time.Time        `json:"builtAt"`
	Products []models.Product `json:"products"`
}

// RedisCatalogCache shares one snapshot between processes through Redis.
// Redis failures degrade to building on every call.
type RedisCatalogCache struct {
	kv    KV
	build BuildFunc
	ttl   time.Duration

	mu  sync.Mutex
	gen uint64

	group singleflight.Group
}

// NewRedisCatalogCache creates a Redis backed catalog cache.
func NewRedisCatalogCache(kv KV, build BuildFunc, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{kv: kv, build: build, ttl: ttl}
}

// Get returns the snapshot stored in Redis or builds and stores a new one.
func (c *RedisCatalogCache) Get(ctx context.Context) []models.Product {
	raw, err := c.kv.Get(ctx, CatalogKey)
	switch {
	case err == nil:
		var snap catalogSnapshot
		jerr := json.Unmarshal([]byte(raw), &snap)
		if jerr == nil {
			return snap.Products
		}
		log.Warn().Err(jerr).Msg("corrupt catalog snapshot in redis, rebuilding")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Msg("redis catalog read failed, rebuilding")
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	v, _, _ := c.group.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		bctx := context.WithoutCancel(ctx)
		products := c.build(bctx)
		c.store(bctx, gen, products)
		return products, nil
	})
	return v.([]models.Product)
}

func (c *RedisCatalogCache) store(ctx context.Context, gen uint64, products []models.Product) {
	c.mu.Lock()
	stale := c.gen != gen
	c.mu.Unlock()
	if stale || c.ttl <= 0 {
		return
	}

	payload, err := json.Marshal(catalogSnapshot{BuiltAt: time.Now(), Products: products})
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode catalog snapshot")
		return
	}
	if err := c.kv.Set(ctx, CatalogKey, string(payload), c.ttl); err != nil {
		log.Warn().Err(err).Msg("redis catalog write failed")
	}
}

// Invalidate deletes the shared snapshot.
func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
	return c.kv.Delete(ctx, CatalogKey)
}
