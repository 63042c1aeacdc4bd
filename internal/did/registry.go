package did

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const (
	defaultCacheSize = 1024
	defaultCacheTTL  = 15 * time.Minute
)

type cacheEntry struct {
	result    ResolutionResult
	expiresAt time.Time
}

// Registry is the method registry plus cached resolution. The cache
// never stores a result carrying a ResolutionMetadata.Error — resolution
// results containing errors are never cached.
type Registry struct {
	log *zap.Logger

	mu      sync.RWMutex
	methods map[string]Method

	cache *lru.Cache
	ttl   time.Duration
}

// NewRegistry constructs an empty Registry; call Register for each
// method back-end before resolving.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	cache, _ := lru.New(defaultCacheSize) // only errors on non-positive size
	return &Registry{
		log:     log.With(zap.String("component", "did.registry")),
		methods: make(map[string]Method),
		cache:   cache,
		ttl:     defaultCacheTTL,
	}
}

// SetCacheTTL overrides the resolution cache's TTL, primarily for tests.
func (r *Registry) SetCacheTTL(ttl time.Duration) { r.ttl = ttl }

// Register installs a method back-end under its own Name().
func (r *Registry) Register(m Method) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[m.Name()] = m
}

// Lookup returns the method back-end registered for name.
func (r *Registry) Lookup(name string) (Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[name]
	return m, ok
}

// ClearCache drops every cached resolution result, allowing a forcible
// reset of the resolver cache.
func (r *Registry) ClearCache() { r.cache.Purge() }

// Resolve looks up didURI's method in the registry, returns a cached
// result if one is fresh, and otherwise resolves, caches (unless the
// result carries an error), and returns the result.
func (r *Registry) Resolve(didURI string) ResolutionResult {
	parsed, err := Parse(didURI)
	if err != nil {
		return ResolutionResult{DidResolutionMetadata: ResolutionMetadata{Error: "invalidDid"}}
	}

	method, ok := r.Lookup(parsed.Method)
	if !ok {
		return ResolutionResult{DidResolutionMetadata: ResolutionMetadata{Error: "methodNotSupported"}}
	}

	if cached, ok := r.lookupCache(didURI); ok {
		return cached.Clone()
	}

	result := method.Resolve(parsed)
	if result.DidResolutionMetadata.Error == "" {
		r.storeCache(didURI, result)
	}
	return result
}

func (r *Registry) lookupCache(key string) (ResolutionResult, bool) {
	raw, ok := r.cache.Get(key)
	if !ok {
		return ResolutionResult{}, false
	}
	entry := raw.(cacheEntry)
	if time.Now().After(entry.expiresAt) {
		r.cache.Remove(key)
		return ResolutionResult{}, false
	}
	return entry.result, true
}

func (r *Registry) storeCache(key string, result ResolutionResult) {
	r.cache.Add(key, cacheEntry{result: result.Clone(), expiresAt: time.Now().Add(r.ttl)})
}

// Dereference splits didUri#fragment and returns the matching inline
// verification method or service, or the full document when there is no
// fragment.
func (r *Registry) Dereference(didURI string) (interface{}, error) {
	parsed, err := Parse(didURI)
	if err != nil {
		return nil, errInvalidDidURL("cannot parse did url: " + didURI)
	}

	result := r.Resolve(URI(parsed.Method, parsed.MethodSpecificID))
	if result.DidDocument == nil {
		return nil, errNotFound("did document not found for " + parsed.URI)
	}

	if parsed.Fragment == "" {
		return result.DidDocument, nil
	}

	fragID := "#" + parsed.Fragment
	if vm, ok := result.DidDocument.FindVerificationMethod(fragID); ok {
		return vm, nil
	}
	for i := range result.DidDocument.Service {
		svc := &result.DidDocument.Service[i]
		if svc.ID == fragID || fragmentOf(svc.ID) == fragID {
			return svc, nil
		}
	}
	return nil, errNotFound("fragment " + fragID + " not found in " + parsed.URI)
}
