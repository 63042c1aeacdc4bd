package identitystore

import (
	"sync"

	"go.uber.org/zap"

	"github.com/blackhole-pro/agentcore/internal/did"
)

// Backend is the durable side of a Store: when the DWN is the canonical
// store, a Backend implementation writes/reads RecordsWrite envelopes
// under a well-known protocol/path instead of touching an in-process map.
// Store always keeps its own in-memory cache in front of whatever Backend
// is configured (or no Backend at all, for a purely in-memory store).
type Backend interface {
	Put(tenant, id string, record did.PortableDid) error
	Get(tenant, id string) (did.PortableDid, bool, error)
	List(tenant string) ([]did.PortableDid, error)
	Delete(tenant, id string) error
}

// Store is the per-tenant CRUD surface over (id -> PortableDid) records.
type Store struct {
	log     *zap.Logger
	backend Backend

	mu    sync.RWMutex
	cache map[string]map[string]did.PortableDid // tenant -> id -> record
}

// New constructs a Store. backend may be nil for a purely in-memory
// store; otherwise every mutating call is also applied to backend, and
// Get/List may serve from cache or backend depending on useCache.
func New(log *zap.Logger, backend Backend) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		log:     log.With(zap.String("component", "identitystore")),
		backend: backend,
		cache:   make(map[string]map[string]did.PortableDid),
	}
}

func (s *Store) tenantMap(tenant string) map[string]did.PortableDid {
	m, ok := s.cache[tenant]
	if !ok {
		m = make(map[string]did.PortableDid)
		s.cache[tenant] = m
	}
	return m
}

// Set stores record under id within tenant. preventDuplicates makes this
// fail with DuplicateID when id already exists for tenant.
func (s *Store) Set(tenant, id string, record did.PortableDid, preventDuplicates bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tm := s.tenantMap(tenant)
	if preventDuplicates {
		if _, exists := tm[id]; exists {
			return errDuplicateID(tenant, id)
		}
	}

	if s.backend != nil {
		if err := s.backend.Put(tenant, id, record); err != nil {
			return errBackendFailed("writing identity record", err)
		}
	}
	tm[id] = record
	s.log.Debug("identity record set", zap.String("tenant", tenant), zap.String("id", id))
	return nil
}

// Get returns the record stored under id within tenant. useCache=false
// forces a backend read-through (when a backend is configured) even if
// an entry is already cached.
func (s *Store) Get(tenant, id string, useCache bool) (did.PortableDid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tm := s.tenantMap(tenant)
	if useCache {
		if record, ok := tm[id]; ok {
			return record, nil
		}
	}

	if s.backend != nil {
		record, ok, err := s.backend.Get(tenant, id)
		if err != nil {
			return did.PortableDid{}, errBackendFailed("reading identity record", err)
		}
		if !ok {
			return did.PortableDid{}, errNotFound(tenant, id)
		}
		tm[id] = record
		return record, nil
	}

	if record, ok := tm[id]; ok {
		return record, nil
	}
	return did.PortableDid{}, errNotFound(tenant, id)
}

// List returns every record stored for tenant.
func (s *Store) List(tenant string, useCache bool) ([]did.PortableDid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !useCache && s.backend != nil {
		records, err := s.backend.List(tenant)
		if err != nil {
			return nil, errBackendFailed("listing identity records", err)
		}
		return records, nil
	}

	tm := s.tenantMap(tenant)
	records := make([]did.PortableDid, 0, len(tm))
	for _, record := range tm {
		records = append(records, record)
	}
	return records, nil
}

// Delete removes the record stored under id within tenant.
func (s *Store) Delete(tenant, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tm := s.tenantMap(tenant)
	if _, ok := tm[id]; !ok {
		if s.backend == nil {
			return errNotFound(tenant, id)
		}
	}

	if s.backend != nil {
		if err := s.backend.Delete(tenant, id); err != nil {
			return errBackendFailed("deleting identity record", err)
		}
	}
	delete(tm, id)
	s.log.Debug("identity record deleted", zap.String("tenant", tenant), zap.String("id", id))
	return nil
}
