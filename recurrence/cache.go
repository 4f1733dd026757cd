package recurrence

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cyp0633/wincal/calendar"
)

// CacheEntry represents a cached expansion result
type CacheEntry struct {
	Occurrences []time.Time
	ExpiresAt   time.Time
	AccessedAt  time.Time
}

// RecurrenceCache memoizes expansion results keyed by every input that can
// change them.
type RecurrenceCache struct {
	entries         map[string]*CacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// CacheConfig holds configuration for the recurrence cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before cleanup
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for recurrence caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewRecurrenceCache creates a new recurrence cache with the given
// configuration. Zero fields fall back to DefaultCacheConfig.
func NewRecurrenceCache(config CacheConfig) *RecurrenceCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}

	cache := &RecurrenceCache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// generateCacheKey hashes the event fields that affect expansion together
// with the window and the cap.
func (c *RecurrenceCache) generateCacheKey(ev calendar.Event, rangeStart, rangeEnd time.Time, maxOccurrences int) string {
	hasher := sha256.New()

	writeTime := func(t time.Time) {
		hasher.Write([]byte(t.Format(time.RFC3339Nano)))
		hasher.Write([]byte{0})
	}

	writeTime(ev.Start)
	writeTime(ev.End)
	// The location name matters for date-only UNTIL values and exception dates.
	hasher.Write([]byte(ev.Start.Location().String()))
	hasher.Write([]byte{0})
	hasher.Write([]byte(ev.RecurrenceRule))
	hasher.Write([]byte{0})

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(ev.RecurrenceExceptions)))
	hasher.Write(n[:])
	for _, ex := range ev.RecurrenceExceptions {
		writeTime(ex)
	}

	writeTime(rangeStart)
	writeTime(rangeEnd)
	hasher.Write([]byte(strconv.Itoa(maxOccurrences)))

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get retrieves a cached result if it exists and hasn't expired. The
// returned slice is a copy.
func (c *RecurrenceCache) Get(ev calendar.Event, rangeStart, rangeEnd time.Time, maxOccurrences int) ([]time.Time, bool) {
	key := c.generateCacheKey(ev, rangeStart, rangeEnd, maxOccurrences)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	now := time.Now()
	if now.After(entry.ExpiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	entry.AccessedAt = now
	return append([]time.Time{}, entry.Occurrences...), true
}

// Set stores a copy of occurrences in the cache
func (c *RecurrenceCache) Set(ev calendar.Event, rangeStart, rangeEnd time.Time, maxOccurrences int, occurrences []time.Time) {
	key := c.generateCacheKey(ev, rangeStart, rangeEnd, maxOccurrences)
	now := time.Now()

	entry := &CacheEntry{
		Occurrences: append([]time.Time{}, occurrences...),
		ExpiresAt:   now.Add(c.ttl),
		AccessedAt:  now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry

	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries and, if still over the limit, the least
// recently accessed ones. Callers hold the write lock.
func (c *RecurrenceCache) cleanup() {
	now := time.Now()

	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}
	keyAccessList := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		keyAccessList = append(keyAccessList, keyAccess{key: key, accessedAt: entry.AccessedAt})
	}
	sort.Slice(keyAccessList, func(i, j int) bool {
		return keyAccessList[i].accessedAt.Before(keyAccessList[j].accessedAt)
	})

	entriesToRemove := len(c.entries) - c.maxEntries
	for i := 0; i < entriesToRemove; i++ {
		delete(c.entries, keyAccessList[i].key)
	}
}

func (c *RecurrenceCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. It is safe to
// call more than once.
func (c *RecurrenceCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *RecurrenceCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entryCount := len(c.entries)
	expiredCount := 0
	now := time.Now()

	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expiredCount++
		}
	}

	return CacheStats{
		TotalEntries:   entryCount,
		ExpiredEntries: expiredCount,
		ActiveEntries:  entryCount - expiredCount,
	}
}

// CacheStats provides information about cache performance
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
