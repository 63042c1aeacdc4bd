// Package dhtmethod implements did:dht's document construction and
// resolution. The method-specific-id is a deterministic z-base-32
// encoding of the identity key's raw Ed25519 public key bytes, computed
// entirely locally — no network round-trip is needed to create a
// did:dht identifier, only to announce it on the Mainline DHT or resolve
// one belonging to someone else. Announcing and DHT-backed resolution
// are delegated to an injectable PublishResolver, which a deployment
// wires to an actual DHT client if it needs one; left unconfigured,
// Resolve fails explicitly rather than silently no-opping.
package dhtmethod

import (
	"encoding/base64"
	"fmt"

	"github.com/blackhole-pro/agentcore/internal/crypto"
	"github.com/blackhole-pro/agentcore/internal/did"
	"github.com/blackhole-pro/agentcore/internal/keymanager"
)

const methodName = "dht"

// zbase32Alphabet is Zooko Wilcox-O'Hearn's human-friendly base32
// alphabet, packed MSB-first in 5-bit groups with zero-padding on the
// final partial group.
const zbase32Alphabet = "ybndrfg8ejkmcpqxot1uwisza345h769"

func zbase32Encode(data []byte) string {
	var out []byte
	bits := 0
	value := 0
	for _, b := range data {
		value = (value << 8) | int(b)
		bits += 8
		for bits >= 5 {
			out = append(out, zbase32Alphabet[(value>>(bits-5))&0x1f])
			bits -= 5
		}
	}
	if bits > 0 {
		out = append(out, zbase32Alphabet[(value<<(5-bits))&0x1f])
	}
	return string(out)
}

// PublishResolver is the seam a host process implements to back did:dht
// with a real network client; this package never talks to a DHT itself.
type PublishResolver interface {
	Publish(doc *did.Document) error
	Resolve(methodSpecificID string) (*did.Document, error)
}

// Method is the did:dht back-end.
type Method struct {
	backend PublishResolver
}

// New constructs a did:dht back-end. backend may be nil; Create and
// CreateFromExistingKey still work without it, while Publish returns an
// error and Resolve reports methodNotSupported for every did:dht.
func New(backend PublishResolver) *Method {
	return &Method{backend: backend}
}

func (*Method) Name() string { return methodName }

// Create generates an Ed25519 identity key and derives its did:dht
// document locally. No PublishResolver call is made; announcing the
// resulting document on the DHT is a separate, explicit operation a
// caller performs (e.g. via Publish) if it needs other peers to resolve
// this DID over the network.
func (m *Method) Create(km *keymanager.Manager, opts did.CreateOptions) (did.BearerDid, error) {
	algorithm := opts.Algorithm
	if algorithm == "" {
		algorithm = "EdDSA"
	}
	if algorithm != "EdDSA" {
		return did.BearerDid{}, fmt.Errorf("did:dht: only Ed25519 (EdDSA) identity keys are supported, got %q", algorithm)
	}
	keyURI, err := km.GenerateKey(algorithm)
	if err != nil {
		return did.BearerDid{}, err
	}
	return CreateFromExistingKey(km, keyURI)
}

// CreateFromExistingKey builds a did:dht BearerDid for an Ed25519 key
// already held by km, rather than generating a fresh one. Used when the
// caller (the agent facade, deriving its own DID deterministically from
// the vault seed) needs did:dht document construction without Create's
// side effect of minting new key material.
func CreateFromExistingKey(km *keymanager.Manager, keyURI string) (did.BearerDid, error) {
	pub, err := km.GetPublicKey(keyURI)
	if err != nil {
		return did.BearerDid{}, err
	}
	return documentFromPublicJWK(pub)
}

// documentFromPublicJWK derives the did:dht document and identifier for
// pub's raw public key bytes. The identity key must be Ed25519: did:dht
// identifiers are defined over the z-base-32 encoding of a single
// Ed25519 public key, not an arbitrary JWK.
func documentFromPublicJWK(pub crypto.JWK) (did.BearerDid, error) {
	if pub.Crv != "Ed25519" {
		return did.BearerDid{}, fmt.Errorf("did:dht: identity key must be Ed25519, got crv %q", pub.Crv)
	}
	raw, err := base64.RawURLEncoding.DecodeString(pub.X)
	if err != nil {
		return did.BearerDid{}, fmt.Errorf("did:dht: decoding public key: %w", err)
	}

	methodSpecificID := zbase32Encode(raw)
	docID := fmt.Sprintf("did:%s:%s", methodName, methodSpecificID)
	vmID := docID + "#0"

	vm := did.VerificationMethod{
		ID:           vmID,
		Type:         "JsonWebKey2020",
		Controller:   docID,
		PublicKeyJwk: pub,
	}

	doc := did.Document{
		ID:                   docID,
		VerificationMethod:   []did.VerificationMethod{vm},
		Authentication:       []string{vmID},
		AssertionMethod:      []string{vmID},
		CapabilityInvocation: []string{vmID},
		CapabilityDelegation: []string{vmID},
	}

	return did.BearerDid{URI: docID, Document: doc}, nil
}

// Publish announces doc on the configured DHT backend. This is the
// separate, out-of-scope-by-default network operation: Create never
// calls it implicitly.
func (m *Method) Publish(doc *did.Document) error {
	if m.backend == nil {
		return fmt.Errorf("did:dht: no PublishResolver configured, cannot publish")
	}
	return m.backend.Publish(doc)
}

func (m *Method) Resolve(parsed did.ParsedDID) did.ResolutionResult {
	if m.backend == nil {
		return did.ResolutionResult{DidResolutionMetadata: did.ResolutionMetadata{Error: "methodNotSupported"}}
	}
	doc, err := m.backend.Resolve(parsed.MethodSpecificID)
	if err != nil || doc == nil {
		return did.ResolutionResult{DidResolutionMetadata: did.ResolutionMetadata{Error: "notFound"}}
	}
	return did.ResolutionResult{DidDocument: doc}
}

func (*Method) GetSigningMethod(doc *did.Document) (*did.VerificationMethod, error) {
	return did.DefaultSigningMethod(doc)
}
