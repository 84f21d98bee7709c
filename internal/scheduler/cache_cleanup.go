package scheduler

import (
	"github.com/rs/zerolog"
)

// DefaultCleanupSchedule sweeps the analytics cache every ten minutes.
const DefaultCleanupSchedule = "@every 10m"

// Sweeper evicts expired entries and reports how many it removed.
type Sweeper interface {
	Cleanup() int
	Len() int
}

// CacheCleanupJob evicts expired analytics cache entries.
type CacheCleanupJob struct {
	log   zerolog.Logger
	cache Sweeper
}

// NewCacheCleanupJob creates a cleanup job for cache.
func NewCacheCleanupJob(cache Sweeper, log zerolog.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		log:   log.With().Str("job", "cache_cleanup").Logger(),
		cache: cache,
	}
}

// Name returns the job name.
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Run sweeps the cache once.
func (j *CacheCleanupJob) Run() error {
	removed := j.cache.Cleanup()
	if removed > 0 {
		j.log.Debug().
			Int("removed", removed).
			Int("remaining", j.cache.Len()).
			Msg("Evicted expired cache entries")
	}
	return nil
}
