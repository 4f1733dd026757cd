package recurrence

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cyp0633/wincal/calendar"
)

func cacheFixture(rule string) (calendar.Event, time.Time, time.Time) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	ev := calendar.Event{
		Title:          "Cached",
		Start:          start,
		End:            start.Add(time.Hour),
		RecurrenceRule: rule,
	}
	return ev, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
}

func TestRecurrenceCache_BasicOperations(t *testing.T) {
	cache := NewRecurrenceCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 1 * time.Minute,
	})
	defer cache.Close()

	ev, rangeStart, rangeEnd := cacheFixture("FREQ=DAILY;COUNT=2")

	// Cache miss first
	result, found := cache.Get(ev, rangeStart, rangeEnd, 10)
	if found {
		t.Error("Expected cache miss, got hit")
	}
	if result != nil {
		t.Error("Expected nil result on cache miss")
	}

	want := []time.Time{ev.Start, ev.Start.AddDate(0, 0, 1)}
	cache.Set(ev, rangeStart, rangeEnd, 10, want)

	result, found = cache.Get(ev, rangeStart, rangeEnd, 10)
	if !found {
		t.Fatal("Expected cache hit, got miss")
	}
	if len(result) != 2 || !result[0].Equal(want[0]) || !result[1].Equal(want[1]) {
		t.Errorf("Expected %v, got %v", want, result)
	}
}

func TestRecurrenceCache_StoresCopies(t *testing.T) {
	cache := NewRecurrenceCache(DefaultCacheConfig)
	defer cache.Close()

	ev, rangeStart, rangeEnd := cacheFixture("FREQ=DAILY;COUNT=1")
	stored := []time.Time{ev.Start}
	cache.Set(ev, rangeStart, rangeEnd, 10, stored)
	stored[0] = time.Time{}

	result, _ := cache.Get(ev, rangeStart, rangeEnd, 10)
	result[0] = time.Time{}

	again, found := cache.Get(ev, rangeStart, rangeEnd, 10)
	if !found || !again[0].Equal(ev.Start) {
		t.Errorf("Expected cached entry to be isolated from callers, got %v", again)
	}
}

func TestRecurrenceCache_TTLExpiration(t *testing.T) {
	cache := NewRecurrenceCache(CacheConfig{
		TTL:             100 * time.Millisecond, // Very short TTL for testing
		MaxEntries:      100,
		CleanupInterval: 50 * time.Millisecond,
	})
	defer cache.Close()

	ev, rangeStart, rangeEnd := cacheFixture("FREQ=DAILY;COUNT=5")
	cache.Set(ev, rangeStart, rangeEnd, 10, []time.Time{ev.Start})

	if _, found := cache.Get(ev, rangeStart, rangeEnd, 10); !found {
		t.Error("Expected cache hit immediately after set")
	}

	// Wait for expiration
	time.Sleep(150 * time.Millisecond)

	if _, found := cache.Get(ev, rangeStart, rangeEnd, 10); found {
		t.Error("Expected cache miss after TTL expiration")
	}
}

func TestRecurrenceCache_DifferentKeys(t *testing.T) {
	cache := NewRecurrenceCache(DefaultCacheConfig)
	defer cache.Close()

	daily, rangeStart, rangeEnd := cacheFixture("FREQ=DAILY;COUNT=5")
	weekly, _, _ := cacheFixture("FREQ=WEEKLY;COUNT=5")

	cache.Set(daily, rangeStart, rangeEnd, 10, []time.Time{daily.Start})
	cache.Set(weekly, rangeStart, rangeEnd, 10, []time.Time{})

	dailyResult, found1 := cache.Get(daily, rangeStart, rangeEnd, 10)
	weeklyResult, found2 := cache.Get(weekly, rangeStart, rangeEnd, 10)

	if !found1 || len(dailyResult) != 1 {
		t.Error("Expected first cache entry to hold one occurrence")
	}
	if !found2 || len(weeklyResult) != 0 {
		t.Error("Expected second cache entry to be empty")
	}
}

func TestRecurrenceCache_Stats(t *testing.T) {
	cache := NewRecurrenceCache(DefaultCacheConfig)
	defer cache.Close()

	stats := cache.Stats()
	if stats.TotalEntries != 0 {
		t.Errorf("Expected 0 initial entries, got %d", stats.TotalEntries)
	}

	for i := 0; i < 5; i++ {
		ev, rangeStart, rangeEnd := cacheFixture(fmt.Sprintf("FREQ=DAILY;COUNT=%d", i+1))
		cache.Set(ev, rangeStart, rangeEnd, 10, nil)
	}

	stats = cache.Stats()
	if stats.TotalEntries != 5 {
		t.Errorf("Expected 5 entries, got %d", stats.TotalEntries)
	}
	if stats.ActiveEntries != 5 {
		t.Errorf("Expected 5 active entries, got %d", stats.ActiveEntries)
	}
}

// Test cache size limits and LRU eviction
func TestRecurrenceCache_MaxEntriesEviction(t *testing.T) {
	cache := NewRecurrenceCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      3, // Small limit for testing
		CleanupInterval: 1 * time.Minute,
	})
	defer cache.Close()

	for i := 0; i < 3; i++ {
		ev, rangeStart, rangeEnd := cacheFixture(fmt.Sprintf("FREQ=DAILY;COUNT=%d", i+1))
		cache.Set(ev, rangeStart, rangeEnd, 10, nil)
		time.Sleep(2 * time.Millisecond)
	}

	stats := cache.Stats()
	if stats.TotalEntries != 3 {
		t.Errorf("Expected 3 entries, got %d", stats.TotalEntries)
	}

	// Add one more entry, should trigger eviction
	newest, rangeStart, rangeEnd := cacheFixture("FREQ=WEEKLY;COUNT=1")
	cache.Set(newest, rangeStart, rangeEnd, 10, nil)

	stats = cache.Stats()
	if stats.TotalEntries != 3 {
		t.Errorf("Expected 3 entries after eviction, got %d", stats.TotalEntries)
	}

	if _, found := cache.Get(newest, rangeStart, rangeEnd, 10); !found {
		t.Error("Expected newest entry to be present after eviction")
	}

	oldest, _, _ := cacheFixture("FREQ=DAILY;COUNT=1")
	if _, found := cache.Get(oldest, rangeStart, rangeEnd, 10); found {
		t.Error("Expected oldest entry to be evicted")
	}
}

// Test concurrent access to cache
func TestRecurrenceCache_ConcurrentAccess(t *testing.T) {
	cache := NewRecurrenceCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 1 * time.Minute,
	})
	defer cache.Close()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ev, rangeStart, rangeEnd := cacheFixture(fmt.Sprintf("FREQ=DAILY;COUNT=%d", (id*50+i)%20+1))
				cache.Set(ev, rangeStart, rangeEnd, 10, []time.Time{ev.Start})
				cache.Get(ev, rangeStart, rangeEnd, 10)
			}
		}(g)
	}
	wg.Wait()

	if stats := cache.Stats(); stats.TotalEntries > 100 {
		t.Errorf("Expected at most 100 entries, got %d", stats.TotalEntries)
	}
}

func TestRecurrenceCache_KeyGeneration(t *testing.T) {
	cache := NewRecurrenceCache(DefaultCacheConfig)
	defer cache.Close()

	base, rangeStart, rangeEnd := cacheFixture("FREQ=DAILY;COUNT=5")
	baseKey := cache.generateCacheKey(base, rangeStart, rangeEnd, 10)

	withException := base
	withException.RecurrenceExceptions = []time.Time{base.Start}

	otherZone := base
	otherZone.Start = base.Start.In(time.FixedZone("X", 0))

	renamed := base
	renamed.Title = "Renamed"

	tests := []struct {
		name     string
		ev       calendar.Event
		max      int
		rangeEnd time.Time
		same     bool
	}{
		{"identical inputs", base, 10, rangeEnd, true},
		{"title does not affect expansion", renamed, 10, rangeEnd, true},
		{"different cap", base, 11, rangeEnd, false},
		{"different range end", base, 10, rangeEnd.Add(time.Hour), false},
		{"exception added", withException, 10, rangeEnd, false},
		{"same instant, different zone", otherZone, 10, rangeEnd, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := cache.generateCacheKey(tt.ev, rangeStart, tt.rangeEnd, tt.max)
			if (key == baseKey) != tt.same {
				t.Errorf("Expected same=%v for %q", tt.same, tt.name)
			}
		})
	}
}

func TestRecurrenceCache_CloseIsIdempotent(t *testing.T) {
	cache := NewRecurrenceCache(DefaultCacheConfig)
	cache.Close()
	cache.Close()

	if stats := cache.Stats(); stats.TotalEntries != 0 {
		t.Errorf("Expected empty cache after close, got %d", stats.TotalEntries)
	}
}
