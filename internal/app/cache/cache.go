// Package cache implements a process-wide, tenant-scoped TTL cache with
// per-entry tags, tag-union invalidation, and invalidation callbacks,
// which the graph builder and the convenience invalidation routines
// depend on.
package cache

import (
	"sync"
	"time"

	"github.com/R3E-Network/riskgraph/internal/app/domain/graph"
	"github.com/R3E-Network/riskgraph/pkg/logger"
	"github.com/R3E-Network/riskgraph/pkg/metrics"
)

// DefaultTTL is used when Set is called without an explicit ttl.
const DefaultTTL = 30 * time.Minute

// SweepInterval is how often the background goroutine removes expired
// entries.
const SweepInterval = 5 * time.Minute

// DependencyGraphTTL is the TTL the graph builder uses when caching a
// tenant's dependency graph.
const DependencyGraphTTL = time.Hour

// Options configures a single Set call.
type Options struct {
	TTL  time.Duration
	Tags []string
}

type entry struct {
	value      interface{}
	expiration time.Time
	tags       map[string]struct{}
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiration)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// InvalidationCallback is invoked once per invalidated entry with its full
// namespaced key and its tag set. Panics recovered from a callback are
// logged and swallowed; they never abort the sweep.
type InvalidationCallback func(fullKey string, tags []string)

// Cache is a process-wide, concurrent-safe, tenant-namespaced key/value
// store with TTL expiry and tag-based group invalidation.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	hits, misses, evictions int64

	callbacksMu sync.Mutex
	callbacks   map[int]InvalidationCallback
	nextCbID    int

	log *logger.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Cache and starts its background sweep goroutine.
func New(log *logger.Logger) *Cache {
	if log == nil {
		log = logger.NewDefault("cache")
	}
	c := &Cache{
		entries:   make(map[string]*entry),
		callbacks: make(map[int]InvalidationCallback),
		log:       log,
		stopCh:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.sweepLoop()
	return c
}

func namespacedKey(tenant, key string) string {
	return tenant + ":" + key
}

func tagSet(tenant string, extra []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extra)+1)
	set[tenant] = struct{}{}
	for _, t := range extra {
		set[t] = struct{}{}
	}
	return set
}

// Set stores value under (tenant, key). The entry's effective tag set is
// {tenant} ∪ opts.Tags. A zero TTL uses DefaultTTL.
func (c *Cache) Set(tenant, key string, value interface{}, opts Options) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[namespacedKey(tenant, key)] = &entry{
		value:      value,
		expiration: time.Now().Add(ttl),
		tags:       tagSet(tenant, opts.Tags),
	}
}

// Get returns the stored value, or absent on miss or expiry. Expired
// entries are dropped inline and counted as an eviction.
func (c *Cache) Get(tenant, key string) (interface{}, bool) {
	full := namespacedKey(tenant, key)

	c.mu.Lock()
	e, ok := c.entries[full]
	if !ok {
		c.misses++
		c.mu.Unlock()
		metrics.RecordCacheMiss()
		return nil, false
	}
	if e.expired(time.Now()) {
		delete(c.entries, full)
		c.misses++
		c.evictions++
		tags := tagsSlice(e.tags)
		c.mu.Unlock()
		metrics.RecordCacheMiss()
		metrics.RecordCacheEviction()
		c.notify(full, tags)
		return nil, false
	}
	c.hits++
	value := e.value
	c.mu.Unlock()
	metrics.RecordCacheHit()
	return value, true
}

// Has is equivalent to a non-null Get.
func (c *Cache) Has(tenant, key string) bool {
	_, ok := c.Get(tenant, key)
	return ok
}

// Delete removes the entry and fires invalidation callbacks with its tags.
// Returns whether an entry was actually removed.
func (c *Cache) Delete(tenant, key string) bool {
	full := namespacedKey(tenant, key)

	c.mu.Lock()
	e, ok := c.entries[full]
	if !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.entries, full)
	tags := tagsSlice(e.tags)
	c.mu.Unlock()

	c.notify(full, tags)
	return true
}

// InvalidateTenant removes every entry whose tag set contains tenant.
func (c *Cache) InvalidateTenant(tenant string) int {
	return c.invalidateMatching(func(tags map[string]struct{}) bool {
		_, ok := tags[tenant]
		return ok
	})
}

// InvalidateByTag removes every entry carrying tag.
func (c *Cache) InvalidateByTag(tag string) int {
	return c.InvalidateByTags([]string{tag})
}

// InvalidateByTags removes every entry carrying any of tags (union
// semantics).
func (c *Cache) InvalidateByTags(tags []string) int {
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}
	return c.invalidateMatching(func(entryTags map[string]struct{}) bool {
		for t := range want {
			if _, ok := entryTags[t]; ok {
				return true
			}
		}
		return false
	})
}

func (c *Cache) invalidateMatching(match func(tags map[string]struct{}) bool) int {
	type removed struct {
		key  string
		tags []string
	}

	c.mu.Lock()
	var victims []removed
	for key, e := range c.entries {
		if match(e.tags) {
			victims = append(victims, removed{key: key, tags: tagsSlice(e.tags)})
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	for _, v := range victims {
		c.notify(v.key, v.tags)
	}
	return len(victims)
}

func tagsSlice(tags map[string]struct{}) []string {
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	return out
}

// OnInvalidation installs cb, called once per invalidated entry. It returns
// an unregister function.
func (c *Cache) OnInvalidation(cb InvalidationCallback) func() {
	c.callbacksMu.Lock()
	id := c.nextCbID
	c.nextCbID++
	c.callbacks[id] = cb
	c.callbacksMu.Unlock()

	return func() {
		c.callbacksMu.Lock()
		delete(c.callbacks, id)
		c.callbacksMu.Unlock()
	}
}

func (c *Cache) notify(fullKey string, tags []string) {
	c.callbacksMu.Lock()
	cbs := make([]InvalidationCallback, 0, len(c.callbacks))
	for _, cb := range c.callbacks {
		cbs = append(cbs, cb)
	}
	c.callbacksMu.Unlock()

	for _, cb := range cbs {
		c.invokeSafely(cb, fullKey, tags)
	}
}

func (c *Cache) invokeSafely(cb InvalidationCallback, fullKey string, tags []string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("key", fullKey).Errorf("invalidation callback panicked: %v", r)
		}
	}()
	cb(fullKey, tags)
}

// GetStats returns a snapshot of hit/miss/eviction counters and current
// size.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
	metrics.SetCacheSize(s.Size)
	return s
}

// ResetStats zeroes the hit/miss/eviction counters.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Clear removes every entry without firing invalidation callbacks.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Shutdown stops the background sweep and clears state. It must be called
// during orderly teardown.
func (c *Cache) Shutdown() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
	c.Clear()
}

func (c *Cache) sweepLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache) sweep() {
	now := time.Now()

	type removed struct {
		key  string
		tags []string
	}

	c.mu.Lock()
	var victims []removed
	for key, e := range c.entries {
		if e.expired(now) {
			victims = append(victims, removed{key: key, tags: tagsSlice(e.tags)})
			delete(c.entries, key)
		}
	}
	c.evictions += int64(len(victims))
	c.mu.Unlock()

	for _, v := range victims {
		metrics.RecordCacheEviction()
		c.notify(v.key, v.tags)
	}
}

// Convenience invalidation routines ------------------------------------------
//
// Every entry's effective tag set always includes its owning tenant (Set
// adds it automatically), so these routines intersect the documented tag
// union with the tenant tag: a tag-match naming a generic tag like
// "dependency-graph" must never evict another tenant's entries.

// InvalidateRegulation invalidates every cache entry tied to a regulation's
// identity plus the dependency graph, risk scores, and impact analysis for
// the tenant.
func (c *Cache) InvalidateRegulation(tenant, regulationID string) int {
	return c.invalidateTenantTags(tenant, []string{
		"regulation:" + regulationID,
		"dependency-graph",
		"risk-scores",
		"impact-analysis",
	})
}

// InvalidateEntity invalidates every cache entry tied to an entity's
// identity plus the dependency graph and risk scores.
func (c *Cache) InvalidateEntity(tenant string, t graph.NodeType, id string) int {
	return c.invalidateTenantTags(tenant, []string{
		"entity:" + string(t) + ":" + id,
		"dependency-graph",
		"risk-scores",
	})
}

// InvalidateEdge invalidates the dependency graph tag for a tenant.
func (c *Cache) InvalidateEdge(tenant string) int {
	return c.invalidateTenantTags(tenant, []string{"dependency-graph"})
}

// invalidateTenantTags removes every entry belonging to tenant that also
// carries at least one of tags.
func (c *Cache) invalidateTenantTags(tenant string, tags []string) int {
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}
	return c.invalidateMatching(func(entryTags map[string]struct{}) bool {
		if _, ok := entryTags[tenant]; !ok {
			return false
		}
		for t := range want {
			if _, ok := entryTags[t]; ok {
				return true
			}
		}
		return false
	})
}
