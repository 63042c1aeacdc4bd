package agent

import (
	"github.com/blackhole-pro/agentcore/internal/crypto"
	"github.com/blackhole-pro/agentcore/internal/did"
	"github.com/blackhole-pro/agentcore/internal/did/methods/dhtmethod"
	"github.com/blackhole-pro/agentcore/internal/keymanager"
)

// vaultDeriver implements vault.DIDDeriver: it deterministically derives
// an Ed25519 key pair from the unlocked vault's seed, imports it into the
// agent's key manager, and builds the agent's own did:dht document from
// it — the did:dht method-specific-id is itself a deterministic
// z-base-32 encoding of the public key, so the same seed always
// reproduces the same agent DID with no network round-trip. It also
// remembers the resulting BearerDid so Start can surface it without
// re-deriving.
type vaultDeriver struct {
	km     *keymanager.Manager
	bearer did.BearerDid
}

func (d *vaultDeriver) DeriveDID(seed []byte) (string, error) {
	key, err := crypto.DeriveEd25519FromSeed(seed)
	if err != nil {
		return "", err
	}
	keyURI, err := d.km.ImportKey(key, false)
	if err != nil {
		return "", err
	}
	bearer, err := dhtmethod.CreateFromExistingKey(d.km, keyURI)
	if err != nil {
		return "", err
	}
	d.bearer = bearer
	return bearer.URI, nil
}
