package recurrence

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxOccurrences caps Occurrences and HasOccurrenceInRange per event.
	MaxOccurrences int
}

// DefaultEngineConfig expands without caching, which keeps the engine free of
// background goroutines.
var DefaultEngineConfig = EngineConfig{
	CacheEnabled:   false,
	MaxOccurrences: DefaultMaxOccurrences,
}

// CachedEngineConfig suits long-running processes that render the same
// windows repeatedly (calendar views, subscription feeds).
var CachedEngineConfig = EngineConfig{
	CacheEnabled:   true,
	CacheConfig:    DefaultCacheConfig,
	MaxOccurrences: DefaultMaxOccurrences,
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	if config.MaxOccurrences <= 0 {
		config.MaxOccurrences = DefaultMaxOccurrences
	}

	var cache *RecurrenceCache
	if config.CacheEnabled {
		cache = NewRecurrenceCache(config.CacheConfig)
	}

	return &Engine{
		cache:  cache,
		config: config,
	}
}
