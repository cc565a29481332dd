package scorecache

import (
	"sync"

	"PulseScan/internal/domain/models"
)

// entryKey identifies one memoized pillar computation.
type entryKey struct {
	symbol  string
	pillar  models.Pillar
	version uint64
}

// Cache memoizes pillar scores keyed by (symbol, pillar, version).
// Entries for superseded versions are invalidated lazily: they simply stop
// matching lookups once the version advances and are the first candidates
// for eviction. Capacity is enforced with least-recently-used eviction.
type Cache struct {
	mu       sync.Mutex
	entries  map[entryKey]models.PillarScore
	access   map[entryKey]uint64 // logical clock of last touch
	latest   map[string]uint64   // newest version seen per symbol
	clock    uint64
	capacity int
	hits     uint64
	misses   uint64
}

const defaultCapacity = 4096

// New creates a Cache bounded to capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Cache{
		entries:  make(map[entryKey]models.PillarScore, capacity),
		access:   make(map[entryKey]uint64, capacity),
		latest:   make(map[string]uint64),
		capacity: capacity,
	}
}

// GetOrCompute returns the memoized score for the exact key, or runs
// compute and stores its result. The bool reports a cache hit. compute runs
// outside the lock; it must be pure, so a concurrent duplicate computation
// for the same key is wasted work, never a correctness problem.
func (c *Cache) GetOrCompute(symbol string, pillar models.Pillar, version uint64, compute func() models.PillarScore) (models.PillarScore, bool) {
	k := entryKey{symbol: symbol, pillar: pillar, version: version}

	c.mu.Lock()
	if version > c.latest[symbol] {
		c.latest[symbol] = version
	}
	if score, ok := c.entries[k]; ok {
		c.clock++
		c.access[k] = c.clock
		c.hits++
		c.mu.Unlock()
		return score, true
	}
	c.misses++
	c.mu.Unlock()

	score := compute()

	c.mu.Lock()
	if len(c.entries) >= c.capacity {
		c.evictOne()
	}
	c.clock++
	c.entries[k] = score
	c.access[k] = c.clock
	c.mu.Unlock()
	return score, false
}

// Invalidate drops every entry for a symbol (universe shrink).
func (c *Cache) Invalidate(symbol string) {
	c.mu.Lock()
	for k := range c.entries {
		if k.symbol == symbol {
			delete(c.entries, k)
			delete(c.access, k)
		}
	}
	delete(c.latest, symbol)
	c.mu.Unlock()
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	return n
}

// Stats returns cumulative hit/miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	hits, misses = c.hits, c.misses
	c.mu.Unlock()
	return hits, misses
}

// evictOne removes one entry, preferring anything already superseded by a
// newer version, falling back to the least recently used. Caller holds c.mu.
func (c *Cache) evictOne() {
	var (
		victim   entryKey
		found    bool
		oldest   uint64
		oldestOK bool
	)
	for k := range c.entries {
		if k.version < c.latest[k.symbol] {
			victim = k
			found = true
			break
		}
		if at := c.access[k]; !oldestOK || at < oldest {
			oldest = at
			victim = k
			oldestOK = true
		}
	}
	if !found && !oldestOK {
		return
	}
	delete(c.entries, victim)
	delete(c.access, victim)
}
