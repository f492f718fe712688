package usecase

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"madbot/internal/domain"
)

// DefaultResultTTL is how long rendered result buttons stay usable.
const DefaultResultTTL = 5 * time.Minute

const resultIDPrefix = "wiki-"

type cachedResults struct {
	urls      []string
	createdAt time.Time
}

// ResultCacheOption configures a ResultCache.
type ResultCacheOption func(*ResultCache)

// WithResultTTL overrides the entry lifetime.
func WithResultTTL(ttl time.Duration) ResultCacheOption {
	return func(c *ResultCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ResultCacheOption {
	return func(c *ResultCache) { c.now = now }
}

// ResultCache keeps the URLs behind a rendered result menu until a button is
// clicked or the TTL passes. Expired entries are swept on every Put and Take;
// there is no background timer.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]cachedResults
	ttl     time.Duration
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

// NewResultCache creates an empty cache with the default TTL.
func NewResultCache(opts ...ResultCacheOption) *ResultCache {
	c := &ResultCache{
		entries: make(map[string]cachedResults),
		ttl:     DefaultResultTTL,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Put stores urls and returns the id that Take expects. Ids never contain ':'.
func (c *ResultCache) Put(urls []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)

	id := c.newIDLocked(now)
	for _, taken := c.entries[id]; taken; _, taken = c.entries[id] {
		id = c.newIDLocked(now)
	}
	stored := make([]string, len(urls))
	copy(stored, urls)
	c.entries[id] = cachedResults{urls: stored, createdAt: now}
	return id
}

// Take returns the URL at index and evicts the entry. A found entry is
// evicted even when index is out of range, so every menu answers at most one
// click. Returns domain.ErrMenuExpired for unknown or expired ids and
// domain.ErrBadSelection for an out-of-range index.
func (c *ResultCache) Take(id string, index int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked(c.now())

	entry, ok := c.entries[id]
	if !ok {
		return "", domain.ErrMenuExpired
	}
	delete(c.entries, id)

	if index < 0 || index >= len(entry.urls) {
		return "", domain.ErrBadSelection
	}
	return entry.urls[index], nil
}

// Len returns the number of live entries after sweeping expired ones.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(c.now())
	return len(c.entries)
}

func (c *ResultCache) sweepLocked(now time.Time) {
	for id, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl {
			delete(c.entries, id)
		}
	}
}

// newIDLocked draws from the cache's monotonic entropy, so ids minted within
// the same millisecond still differ.
func (c *ResultCache) newIDLocked(t time.Time) string {
	return resultIDPrefix + ulid.MustNew(ulid.Timestamp(t), c.entropy).String()
}
