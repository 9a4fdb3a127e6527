// Package cache is the in-memory result cache shared by the analytics engines.
//
// Entries expire lazily: a read past the expiry instant is a miss and removes the
// entry, independent of the periodic sweep. Capacity is bounded; inserting a new
// key into a full cache evicts the oldest-inserted entry (insertion order, not
// access order and not TTL).
package cache

import (
	"container/list"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCapacity = 1000
	DefaultTTL      = 5 * time.Minute

	// used when a value cannot be marshalled for size estimation
	fallbackEntrySize = 256
)

type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
	size      int64
	elem      *list.Element
}

// Stats cumulative counters since construction plus current occupancy
type Stats struct {
	Hits          int64     `json:"hits"`
	Misses        int64     `json:"misses"`
	Evictions     int64     `json:"evictions"`
	Invalidations int64     `json:"invalidations"`
	Entries       int       `json:"entries"`
	Capacity      int       `json:"capacity"`
	HitRate       float64   `json:"hit_rate"` // 0..1
	MemoryBytes   int64     `json:"memory_bytes"`
	LastCleanup   time.Time `json:"last_cleanup"`
}

// Option configures a ResultCache
type Option func(*ResultCache)

// WithClock replaces time.Now (tests drive expiry with a fake clock)
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) { c.now = now }
}

// WithSingleFlight collapses concurrent GetOrCompute misses for one key into a single factory call
func WithSingleFlight(enabled bool) Option {
	return func(c *ResultCache) {
		if enabled {
			c.group = &singleflight.Group{}
		} else {
			c.group = nil
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *ResultCache) { c.logger = logger }
}

// ResultCache TTL cache with insertion-order eviction
type ResultCache struct {
	mu          sync.Mutex
	entries     map[string]*entry
	order       *list.List // front = oldest insertion
	capacity    int
	defaultTTL  time.Duration
	now         func() time.Time
	group       *singleflight.Group
	logger      *zap.Logger
	hits        int64
	misses      int64
	evictions   int64
	invalidated int64
	memoryBytes int64
	lastCleanup time.Time
}

// New creates a cache holding at most capacity entries.
// Single-flight is on unless disabled with WithSingleFlight(false).
func New(capacity int, defaultTTL time.Duration, opts ...Option) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	c := &ResultCache{
		entries:    make(map[string]*entry),
		order:      list.New(),
		capacity:   capacity,
		defaultTTL: defaultTTL,
		now:        time.Now,
		group:      &singleflight.Group{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastCleanup = c.now()
	return c
}

// Get returns the live value for key. Expired entries count as a miss and are evicted.
func (c *ResultCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		metrics.CacheMisses.Inc()
		return nil, false
	}

	if c.now().After(e.expiresAt) {
		c.removeLocked(e)
		c.evictions++
		c.misses++
		metrics.CacheEvictions.WithLabelValues("expired").Inc()
		metrics.CacheMisses.Inc()
		return nil, false
	}

	c.hits++
	metrics.CacheHits.Inc()
	return e.value, true
}

// Set stores value for ttl (ttl <= 0 uses the default TTL)
func (c *ResultCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	size := estimateSize(key, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok {
		if !now.After(e.expiresAt) {
			// live key: overwrite in place, insertion position unchanged
			c.memoryBytes += size - e.size
			e.value = value
			e.size = size
			e.expiresAt = now.Add(ttl)
			return
		}
		// logically absent already; re-inserted as a new key
		c.removeLocked(e)
		c.evictions++
		metrics.CacheEvictions.WithLabelValues("expired").Inc()
	}

	if len(c.entries) >= c.capacity {
		if oldest := c.order.Front(); oldest != nil {
			victim := oldest.Value.(*entry)
			c.removeLocked(victim)
			c.evictions++
			metrics.CacheEvictions.WithLabelValues("capacity").Inc()
			c.logger.Debug("Evicted oldest cache entry",
				zap.String("key", victim.key),
				zap.Int("capacity", c.capacity),
			)
		}
	}

	e := &entry{
		key:       key,
		value:     value,
		expiresAt: now.Add(ttl),
		size:      size,
	}
	e.elem = c.order.PushBack(e)
	c.entries[key] = e
	c.memoryBytes += size
	metrics.CacheEntries.Set(float64(len(c.entries)))
}

// Delete removes key; reports whether it was present
func (c *ResultCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(e)
	c.invalidated++
	metrics.CacheEvictions.WithLabelValues("deleted").Inc()
	return true
}

// InvalidatePrefix removes every key starting with prefix and returns how many went
func (c *ResultCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(e)
			removed++
		}
	}
	c.invalidated += int64(removed)
	metrics.CacheEvictions.WithLabelValues("deleted").Add(float64(removed))
	return removed
}

// Clear drops everything; counters are kept
func (c *ResultCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.order.Init()
	c.memoryBytes = 0
	c.invalidated += int64(n)
	metrics.CacheEvictions.WithLabelValues("cleared").Add(float64(n))
	metrics.CacheEntries.Set(0)
	return n
}

// CleanupExpired physically removes expired entries and returns the count
func (c *ResultCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if now.After(e.expiresAt) {
			c.removeLocked(e)
			removed++
		}
		el = next
	}
	c.evictions += int64(removed)
	c.lastCleanup = now
	metrics.CacheEvictions.WithLabelValues("expired").Add(float64(removed))
	return removed
}

// GetOrCompute returns the cached value or runs factory and caches its result.
// Factory errors are returned and never cached.
func (c *ResultCache) GetOrCompute(key string, ttl time.Duration, factory func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	compute := func() (interface{}, error) {
		v, err := factory()
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	}

	if c.group == nil {
		return compute()
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// a concurrent leader may have filled the key between our miss and Do
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		return compute()
	})
	if shared {
		c.logger.Debug("Shared in-flight computation", zap.String("key", key))
	}
	return v, err
}

// GetOrCompute typed wrapper around (*ResultCache).GetOrCompute
func GetOrCompute[T any](c *ResultCache, key string, ttl time.Duration, factory func() (T, error)) (T, error) {
	var zero T
	v, err := c.GetOrCompute(key, ttl, func() (interface{}, error) {
		return factory()
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache value for key %q has type %T", key, v)
	}
	return typed, nil
}

// Stats snapshot
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		Invalidations: c.invalidated,
		Entries:       len(c.entries),
		Capacity:      c.capacity,
		MemoryBytes:   c.memoryBytes,
		LastCleanup:   c.lastCleanup,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Len number of stored entries, including expired ones not yet swept
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys stored keys in insertion order
func (c *ResultCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry).key)
	}
	return keys
}

// peek reads without touching counters
func (c *ResultCache) peek(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *ResultCache) removeLocked(e *entry) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
	c.memoryBytes -= e.size
	metrics.CacheEntries.Set(float64(len(c.entries)))
}

func estimateSize(key string, value interface{}) int64 {
	data, err := json.Marshal(value)
	if err != nil {
		return int64(len(key)) + fallbackEntrySize
	}
	return int64(len(key) + len(data))
}
