package application

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// weekCache stores recently evaluated week slot maps to avoid re-running the
// matcher for identical lookups while the zone's rules remain unchanged.
// Entries are dropped eagerly whenever a writer mutates the zone.
type weekCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]weekCacheEntry
}

type weekCacheEntry struct {
	zoneID    string
	slots     WeekSlots
	expiresAt time.Time
}

func newWeekCache(ttl time.Duration, maxEntries int, now func() time.Time) *weekCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &weekCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]weekCacheEntry),
	}
}

func (c *weekCache) Get(key string) (WeekSlots, bool) {
	if c == nil {
		return WeekSlots{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return WeekSlots{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return WeekSlots{}, false
	}
	return cloneWeekSlots(entry.slots), true
}

func (c *weekCache) Store(key, zoneID string, slots WeekSlots) {
	if c == nil {
		return
	}
	cloned := cloneWeekSlots(slots)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = weekCacheEntry{zoneID: zoneID, slots: cloned, expiresAt: expiry}
}

// Invalidate drops every cached week for the given zone.
func (c *weekCache) Invalidate(zoneID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	for key, entry := range c.entries {
		if entry.zoneID == zoneID {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *weekCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *weekCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneWeekSlots(slots WeekSlots) WeekSlots {
	cloned := slots
	if slots.Assignments != nil {
		cloned.Assignments = make(map[SlotKey]SlotAssignment, len(slots.Assignments))
		for key, assignment := range slots.Assignments {
			if len(assignment.Racks) > 0 {
				racks := make([]string, len(assignment.Racks))
				copy(racks, assignment.Racks)
				assignment.Racks = racks
			}
			cloned.Assignments[key] = assignment
		}
	}
	return cloned
}

func buildWeekCacheKey(zoneID string, weekStart time.Time, slotMinutes, openMin, closeMin int) string {
	builder := strings.Builder{}
	builder.WriteString(zoneID)
	builder.WriteString("|")
	builder.WriteString(weekStart.Format("2006-01-02"))
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(slotMinutes))
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(openMin))
	builder.WriteString("|")
	builder.WriteString(strconv.Itoa(closeMin))
	return builder.String()
}
