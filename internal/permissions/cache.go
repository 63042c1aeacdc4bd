package permissions

import (
	"strings"
	"sync"
	"time"
)

const defaultCacheTTL = 60 * time.Second

// compositeKey builds the connectedDid~delegateDid~messageType~protocol
// key GrantCache stores grants under.
func compositeKey(connectedDid, delegateDid, messageType, protocol string) string {
	return strings.Join([]string{connectedDid, delegateDid, messageType, protocol}, "~")
}

type grantEntry struct {
	grant     Grant
	expiresAt time.Time
}

// GrantCache is a TTL cache from compositeKey to the Grant that last
// satisfied a lookup for that key, using a mutex-protected map plus a
// background sweep goroutine to evict expired entries.
type GrantCache struct {
	ttl    time.Duration
	mu     sync.Mutex
	grants map[string]grantEntry

	stopSweep chan struct{}
}

// NewGrantCache constructs a GrantCache and starts its background sweep
// goroutine. Call Close to stop the sweep when the cache is no longer
// needed.
func NewGrantCache(ttl time.Duration) *GrantCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	c := &GrantCache{
		ttl:       ttl,
		grants:    make(map[string]grantEntry),
		stopSweep: make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

func (c *GrantCache) sweepLoop() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopSweep:
			return
		}
	}
}

func (c *GrantCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, entry := range c.grants {
		if now.After(entry.expiresAt) {
			delete(c.grants, k)
		}
	}
}

// Close stops the cache's background sweep goroutine.
func (c *GrantCache) Close() { close(c.stopSweep) }

// Get returns the cached grant for the lookup's key, if present and not
// expired.
func (c *GrantCache) Get(connectedDid, delegateDid, messageType, protocol string) (Grant, bool) {
	key := compositeKey(connectedDid, delegateDid, messageType, protocol)

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.grants[key]
	if !ok {
		return Grant{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.grants, key)
		return Grant{}, false
	}
	return entry.grant, true
}

// Put caches grant under the lookup's key on a successful match. Misses
// are deliberately never written — they are not negatively cached.
func (c *GrantCache) Put(connectedDid, delegateDid, messageType, protocol string, grant Grant) {
	key := compositeKey(connectedDid, delegateDid, messageType, protocol)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grants[key] = grantEntry{grant: grant, expiresAt: time.Now().Add(c.ttl)}
}

// Clear drops every cached entry, allowing a forcible reset of the cache.
func (c *GrantCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grants = make(map[string]grantEntry)
}
