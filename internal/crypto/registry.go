package crypto

import "sync"

// Algorithm is implemented once per concrete cryptosystem (Ed25519,
// secp256k1, secp256r1, …) and registered under every {alg, crv} alias it
// answers to — ES256K is reachable by alg alone, by crv alone, or by both.
type Algorithm interface {
	Generate() (JWK, error)
	Sign(key JWK, data []byte) ([]byte, error)
	Verify(key JWK, data, signature []byte) (bool, error)
}

// dispatchKey is the composite lookup key for the registry table.
type dispatchKey struct{ alg, crv string }

// Registry is the table from {alg,crv} to Algorithm. NewRegistry fills it
// with the built-in cryptosystems; Register adds or replaces entries
// afterward. Instances are safe for concurrent use; the underlying Algorithm
// implementations are stateless so "caches one instance per algorithm"
// falls out of the table itself rather than a separate instance pool.
type Registry struct {
	mu    sync.RWMutex
	table map[dispatchKey]Algorithm
}

// NewRegistry returns a Registry pre-populated with the minimum required
// dispatch table: EdDSA+Ed25519, ES256K+secp256k1 (plus alg-only and
// crv-only aliases), ES256+secp256r1, and a digest-only SHA-256 entry.
func NewRegistry() *Registry {
	r := &Registry{table: make(map[dispatchKey]Algorithm)}

	ed25519 := &ed25519Algorithm{}
	r.register(dispatchKey{"EdDSA", "Ed25519"}, ed25519)

	secp256k1 := &secp256k1Algorithm{}
	r.register(dispatchKey{"ES256K", "secp256k1"}, secp256k1)
	r.register(dispatchKey{"ES256K", ""}, secp256k1)
	r.register(dispatchKey{"", "secp256k1"}, secp256k1)

	secp256r1 := &secp256r1Algorithm{}
	r.register(dispatchKey{"ES256", "secp256r1"}, secp256r1)
	r.register(dispatchKey{"ES256", "P-256"}, secp256r1)
	r.register(dispatchKey{"ES256", ""}, secp256r1)

	digest := &sha256Digest{}
	r.register(dispatchKey{"SHA-256", ""}, digest)

	return r
}

// Register adds or replaces the backend for alg/crv. Exposed so a host
// process can extend the table (e.g. add RS256) without forking this
// package.
func (r *Registry) Register(alg, crv string, a Algorithm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table[dispatchKey{alg, crv}] = a
}

func (r *Registry) register(k dispatchKey, a Algorithm) {
	r.table[k] = a
}

func (r *Registry) lookup(alg, crv string) (Algorithm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.table[dispatchKey{alg, crv}]; ok {
		return a, nil
	}
	if alg != "" {
		if a, ok := r.table[dispatchKey{alg, ""}]; ok {
			return a, nil
		}
	}
	if crv != "" {
		if a, ok := r.table[dispatchKey{"", crv}]; ok {
			return a, nil
		}
	}
	return nil, errNotSupported(alg, crv)
}

// GenerateKey returns a fresh private JWK for the named algorithm
// ("EdDSA", "ES256K", "ES256"), with kid set to the public thumbprint.
func (r *Registry) GenerateKey(algorithm string) (JWK, error) {
	a, err := r.lookup(algorithm, "")
	if err != nil {
		return JWK{}, err
	}
	key, err := a.Generate()
	if err != nil {
		return JWK{}, err
	}
	if key.Kid == "" {
		tp, err := ComputeThumbprint(key.PublicJWK())
		if err != nil {
			return JWK{}, err
		}
		key.Kid = tp
	}
	return key, nil
}

// Sign dispatches by (key.Alg, key.Crv).
func (r *Registry) Sign(key JWK, data []byte) ([]byte, error) {
	if key.Kty == "" {
		return nil, errInvalidKey("key missing kty", nil)
	}
	a, err := r.lookup(key.Alg, key.Crv)
	if err != nil {
		return nil, err
	}
	return a.Sign(key, data)
}

// Verify dispatches by (key.Alg, key.Crv) and never returns an error for
// a merely-invalid signature — only for a structurally invalid key or an
// unsupported algorithm.
func (r *Registry) Verify(key JWK, signature, data []byte) (bool, error) {
	if key.Kty == "" {
		return false, errInvalidKey("key missing kty", nil)
	}
	a, err := r.lookup(key.Alg, key.Crv)
	if err != nil {
		return false, err
	}
	return a.Verify(key, data, signature)
}

// ComputeThumbprint is re-exported for callers that only have a Registry
// handle (keymanager, did) rather than importing this package's free
// function directly.
func (r *Registry) ComputeThumbprint(key JWK) (string, error) {
	return ComputeThumbprint(key)
}
