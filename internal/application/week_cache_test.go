package application

import (
	"testing"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
)

func cachedSlots(zoneID string) WeekSlots {
	return WeekSlots{
		ZoneID:      zoneID,
		WeekStart:   monday,
		SlotMinutes: 30,
		OpenMin:     9 * 60,
		CloseMin:    10 * 60,
		Assignments: map[SlotKey]SlotAssignment{
			{Day: time.Monday, Minute: 9 * 60}: {
				RuleID:   "rule-1",
				Capacity: 10,
				Period:   recurrence.PeriodGeneralUse,
				Racks:    []string{"rack-1"},
			},
		},
	}
}

func TestWeekCache(t *testing.T) {
	t.Run("entries expire after the ttl", func(t *testing.T) {
		current := monday
		cache := newWeekCache(time.Minute, 0, func() time.Time { return current })

		cache.Store("key", "zone-1", cachedSlots("zone-1"))
		if _, ok := cache.Get("key"); !ok {
			t.Fatal("expected a fresh entry to be served")
		}

		current = current.Add(2 * time.Minute)
		if _, ok := cache.Get("key"); ok {
			t.Fatal("expected the entry to expire")
		}
	})

	t.Run("invalidation only touches the named zone", func(t *testing.T) {
		cache := newWeekCache(time.Minute, 0, nil)
		cache.Store("key-1", "zone-1", cachedSlots("zone-1"))
		cache.Store("key-2", "zone-2", cachedSlots("zone-2"))

		cache.Invalidate("zone-1")

		if _, ok := cache.Get("key-1"); ok {
			t.Fatal("expected zone-1 entries to be dropped")
		}
		if _, ok := cache.Get("key-2"); !ok {
			t.Fatal("expected zone-2 entries to survive")
		}
	})

	t.Run("served values are isolated from the stored copy", func(t *testing.T) {
		cache := newWeekCache(time.Minute, 0, nil)
		cache.Store("key", "zone-1", cachedSlots("zone-1"))

		first, ok := cache.Get("key")
		if !ok {
			t.Fatal("expected a cached entry")
		}
		key := SlotKey{Day: time.Monday, Minute: 9 * 60}
		assignment := first.Assignments[key]
		assignment.Capacity = 99
		assignment.Racks[0] = "mutated"
		first.Assignments[key] = assignment

		second, ok := cache.Get("key")
		if !ok {
			t.Fatal("expected a cached entry")
		}
		stored := second.Assignments[key]
		if stored.Capacity != 10 || stored.Racks[0] != "rack-1" {
			t.Fatalf("expected the cached copy to be untouched, got %+v", stored)
		}
	})

	t.Run("the cache is bounded", func(t *testing.T) {
		cache := newWeekCache(time.Minute, 2, nil)
		cache.Store("key-1", "zone-1", cachedSlots("zone-1"))
		cache.Store("key-2", "zone-1", cachedSlots("zone-1"))
		cache.Store("key-3", "zone-1", cachedSlots("zone-1"))

		served := 0
		for _, key := range []string{"key-1", "key-2", "key-3"} {
			if _, ok := cache.Get(key); ok {
				served++
			}
		}
		if served > 2 {
			t.Fatalf("expected at most 2 entries, got %d", served)
		}
	})

	t.Run("cache keys separate zones weeks and grids", func(t *testing.T) {
		base := buildWeekCacheKey("zone-1", monday, 30, 540, 1200)
		for _, other := range []string{
			buildWeekCacheKey("zone-2", monday, 30, 540, 1200),
			buildWeekCacheKey("zone-1", monday.AddDate(0, 0, 7), 30, 540, 1200),
			buildWeekCacheKey("zone-1", monday, 15, 540, 1200),
			buildWeekCacheKey("zone-1", monday, 30, 600, 1200),
		} {
			if other == base {
				t.Fatalf("expected distinct keys, got %q twice", base)
			}
		}
	})
}
