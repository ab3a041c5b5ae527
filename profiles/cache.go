// Package profiles resolves author ids to display identities, caching
// hits so repeated senders do not trigger redundant lookups.
package profiles

import (
	"log/slog"
	"sync"

	"moonchat/domain/chat"
	"moonchat/repositories"
)

// Cache is a read-through cache over the identity store. Hits live as
// long as the process; misses are re-resolved on every request so a
// late-registered profile is picked up without invalidation plumbing.
// Concurrent population of the same id is last-write-wins, which is
// fine for eventually-consistent profile data.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]chat.Profile
	resolver repositories.IProfileRepository
	log      *slog.Logger
}

func NewCache(resolver repositories.IProfileRepository, log *slog.Logger) *Cache {
	return &Cache{
		entries:  make(map[string]chat.Profile),
		resolver: resolver,
		log:      log,
	}
}

// Resolve bulk-resolves a set of ids, used for initial page population.
// Every requested id is present in the result: unknown authors map to
// the deterministic default profile. Resolution never fails outward;
// rendering must not block on identity trouble.
func (c *Cache) Resolve(ids []string) map[string]chat.Profile {
	result := make(map[string]chat.Profile, len(ids))

	var missing []string
	c.mu.RLock()
	for _, id := range ids {
		if profile, ok := c.entries[id]; ok {
			result[id] = profile
		} else {
			missing = append(missing, id)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return result
	}

	fetched, err := c.resolver.GetProfiles(missing)
	if err != nil {
		c.log.Warn("Bulk profile lookup failed, using defaults", "error", err)
		fetched = nil
	}

	c.mu.Lock()
	for _, id := range missing {
		if profile, ok := fetched[id]; ok {
			profile = profile.WithDefaults()
			c.entries[id] = profile
			result[id] = profile
		} else {
			// Absence is not cached: the author may register later.
			result[id] = chat.DefaultProfile(id)
		}
	}
	c.mu.Unlock()

	return result
}

// ResolveOne resolves a single author, used for fan-out events.
func (c *Cache) ResolveOne(id string) chat.Profile {
	c.mu.RLock()
	profile, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		return profile
	}

	fetched, found, err := c.resolver.GetProfile(id)
	if err != nil {
		c.log.Warn("Profile lookup failed, using default", "id", id, "error", err)
		return chat.DefaultProfile(id)
	}
	if !found {
		return chat.DefaultProfile(id)
	}

	fetched = fetched.WithDefaults()
	c.mu.Lock()
	c.entries[id] = fetched
	c.mu.Unlock()
	return fetched
}
