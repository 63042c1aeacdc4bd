package keymanager

import (
	"sync"

	"go.uber.org/zap"

	"github.com/blackhole-pro/agentcore/internal/crypto"
)

// Manager is an opaque key store keyed by Key URI. It owns no notion of
// "agent context" itself — a single Manager is scoped to one tenant by
// construction, rather than threading a tenant id through every call.
type Manager struct {
	log      *zap.Logger
	registry *crypto.Registry

	mu    sync.RWMutex
	store map[string]crypto.JWK // keyUri -> private JWK
}

// New constructs a Manager backed by registry. Passing nil uses a fresh
// crypto.NewRegistry().
func New(log *zap.Logger, registry *crypto.Registry) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if registry == nil {
		registry = crypto.NewRegistry()
	}
	return &Manager{
		log:      log.With(zap.String("component", "keymanager")),
		registry: registry,
		store:    make(map[string]crypto.JWK),
	}
}

// GenerateKey creates a fresh private key for algorithm, stores it under
// its Key URI and returns that URI.
func (m *Manager) GenerateKey(algorithm string) (string, error) {
	key, err := m.registry.GenerateKey(algorithm)
	if err != nil {
		return "", err
	}
	uri, err := crypto.KeyURI(key.PublicJWK())
	if err != nil {
		return "", err
	}
	key.Kid = "" // kid is derived on demand from the stored key's public members

	m.mu.Lock()
	m.store[uri] = key
	m.mu.Unlock()

	m.log.Debug("generated key", zap.String("keyUri", uri), zap.String("algorithm", algorithm))
	return uri, nil
}

// ImportKey stores a caller-supplied private JWK under its Key URI and
// returns that URI. The key is deep-copied so later mutation of the
// caller's JWK cannot reach the store. preventDuplicates rejects import of
// a URI already present.
func (m *Manager) ImportKey(key crypto.JWK, preventDuplicates bool) (string, error) {
	if !key.IsPrivate() {
		return "", errInvalidKey("importKey requires a private JWK (missing d)", nil)
	}
	stored := key.Clone()
	uri, err := crypto.KeyURI(stored.PublicJWK())
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if preventDuplicates {
		if _, exists := m.store[uri]; exists {
			return "", errDuplicateKey(uri)
		}
	}
	m.store[uri] = stored

	m.log.Debug("imported key", zap.String("keyUri", uri))
	return uri, nil
}

// ExportKey returns the stored private JWK for keyUri.
func (m *Manager) ExportKey(keyURI string) (crypto.JWK, error) {
	m.mu.RLock()
	key, ok := m.store[keyURI]
	m.mu.RUnlock()
	if !ok {
		return crypto.JWK{}, errKeyNotFound(keyURI)
	}
	return key.Clone(), nil
}

// GetPublicKey fetches the stored private JWK for keyUri and strips its
// private members, deriving kid from the public thumbprint if absent.
func (m *Manager) GetPublicKey(keyURI string) (crypto.JWK, error) {
	m.mu.RLock()
	key, ok := m.store[keyURI]
	m.mu.RUnlock()
	if !ok {
		return crypto.JWK{}, errKeyNotFound(keyURI)
	}
	return key.PublicJWK(), nil
}

// GetKeyURI is pure: it computes urn:jwk:<thumbprint> over key's public
// members without touching the store.
func (m *Manager) GetKeyURI(key crypto.JWK) (string, error) {
	return crypto.KeyURI(key.PublicJWK())
}

// Sign signs data with the private key stored under keyUri.
func (m *Manager) Sign(keyURI string, data []byte) ([]byte, error) {
	m.mu.RLock()
	key, ok := m.store[keyURI]
	m.mu.RUnlock()
	if !ok {
		return nil, errKeyNotFound(keyURI)
	}
	return m.registry.Sign(key, data)
}

// Verify checks signature over data against a (typically public) JWK
// supplied directly by the caller rather than looked up by URI — the
// counterpart to a remote party's verification method.
func (m *Manager) Verify(key crypto.JWK, signature, data []byte) (bool, error) {
	return m.registry.Verify(key, signature, data)
}
