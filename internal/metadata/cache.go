package metadata

import (
	"sync"
	"time"
)

// CacheEntry is the cached resolution of one device.
type CacheEntry struct {
	DeviceID   DeviceID
	Attributes []SensorAttribute
	Timestamp  time.Time
}

// IsValid reports whether entry is still fresh at now: its timestamp lies
// strictly after now - ttl.
func IsValid(entry CacheEntry, now time.Time, ttl time.Duration) bool {
	return entry.Timestamp.After(now.Add(-ttl))
}

// Cache maps device ids to their last resolution. Entries are never
// evicted; stale ones are overwritten by the next successful resolve.
// Concurrent Puts for the same device are last-writer-wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[DeviceID]CacheEntry
	metrics *Metrics
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[DeviceID]CacheEntry)}
}

// SetMetrics attaches metrics. A nil value disables them.
func (c *Cache) SetMetrics(m *Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// Get returns the entry for id, stale or not.
func (c *Cache) Get(id DeviceID) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// Put stores attrs for id stamped with now, replacing any previous entry.
func (c *Cache) Put(id DeviceID, attrs []SensorAttribute, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = CacheEntry{DeviceID: id, Attributes: attrs, Timestamp: now}
	c.metrics.recordSet(len(c.entries))
}

// Delete drops the entry for id and reports whether one existed.
func (c *Cache) Delete(id DeviceID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		return false
	}
	delete(c.entries, id)
	c.metrics.recordDelete(len(c.entries))
	return true
}

// Len returns the number of cached devices.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
