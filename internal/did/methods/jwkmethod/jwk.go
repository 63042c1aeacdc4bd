// Package jwkmethod implements did:jwk, the simplest DID method: the
// method-specific-id is the base64url encoding of the public JWK itself,
// so resolution needs no network or registry lookup at all.
package jwkmethod

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/blackhole-pro/agentcore/internal/crypto"
	"github.com/blackhole-pro/agentcore/internal/did"
	"github.com/blackhole-pro/agentcore/internal/keymanager"
)

const methodName = "jwk"

// Method is the did:jwk back-end.
type Method struct{}

func New() *Method { return &Method{} }

func (*Method) Name() string { return methodName }

func (*Method) Create(km *keymanager.Manager, opts did.CreateOptions) (did.BearerDid, error) {
	algorithm := opts.Algorithm
	if algorithm == "" {
		algorithm = "EdDSA"
	}
	keyURI, err := km.GenerateKey(algorithm)
	if err != nil {
		return did.BearerDid{}, err
	}
	pub, err := km.GetPublicKey(keyURI)
	if err != nil {
		return did.BearerDid{}, err
	}

	doc, err := documentFromPublicJWK(pub)
	if err != nil {
		return did.BearerDid{}, err
	}

	return did.BearerDid{
		URI:      doc.ID,
		Document: *doc,
	}, nil
}

func (*Method) Resolve(parsed did.ParsedDID) did.ResolutionResult {
	raw, err := base64.RawURLEncoding.DecodeString(parsed.MethodSpecificID)
	if err != nil {
		return did.ResolutionResult{DidResolutionMetadata: did.ResolutionMetadata{Error: "invalidDid"}}
	}
	var pub crypto.JWK
	if err := json.Unmarshal(raw, &pub); err != nil {
		return did.ResolutionResult{DidResolutionMetadata: did.ResolutionMetadata{Error: "invalidDid"}}
	}

	doc, err := documentFromPublicJWK(pub)
	if err != nil {
		return did.ResolutionResult{DidResolutionMetadata: did.ResolutionMetadata{Error: "invalidDid"}}
	}
	return did.ResolutionResult{DidDocument: doc}
}

func (*Method) GetSigningMethod(doc *did.Document) (*did.VerificationMethod, error) {
	return did.DefaultSigningMethod(doc)
}

// CreateFromExistingKey builds a did:jwk BearerDid for a key already held
// by km, rather than generating a fresh one: did:jwk document
// construction without Create's side effect of minting new key material.
func CreateFromExistingKey(km *keymanager.Manager, keyURI string) (did.BearerDid, error) {
	pub, err := km.GetPublicKey(keyURI)
	if err != nil {
		return did.BearerDid{}, err
	}
	doc, err := documentFromPublicJWK(pub)
	if err != nil {
		return did.BearerDid{}, err
	}
	return did.BearerDid{URI: doc.ID, Document: *doc}, nil
}

// documentFromPublicJWK builds the single-key did:jwk document for pub,
// referencing it from every relationship array — did:jwk documents carry
// exactly one key serving every purpose.
func documentFromPublicJWK(pub crypto.JWK) (*did.Document, error) {
	raw, err := json.Marshal(pub)
	if err != nil {
		return nil, err
	}
	methodSpecificID := base64.RawURLEncoding.EncodeToString(raw)
	docID := fmt.Sprintf("did:%s:%s", methodName, methodSpecificID)
	vmID := docID + "#0"

	vm := did.VerificationMethod{
		ID:           vmID,
		Type:         "JsonWebKey2020",
		Controller:   docID,
		PublicKeyJwk: pub,
	}

	return &did.Document{
		ID:                   docID,
		VerificationMethod:   []did.VerificationMethod{vm},
		Authentication:       []string{vmID},
		AssertionMethod:      []string{vmID},
		CapabilityInvocation: []string{vmID},
		CapabilityDelegation: []string{vmID},
	}, nil
}
