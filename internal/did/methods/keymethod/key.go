// Package keymethod implements did:key: the method-specific-id is a
// multibase-encoded multicodec-prefixed public key, requiring no registry
// lookup to resolve (supplementing the distilled method set with a second
// concrete, fully-offline back-end alongside did:jwk).
package keymethod

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-varint"

	"github.com/blackhole-pro/agentcore/internal/crypto"
	"github.com/blackhole-pro/agentcore/internal/did"
	"github.com/blackhole-pro/agentcore/internal/keymanager"
)

const methodName = "key"

// multibasePrefixBase58BTC is the 'z' prefix multibase.Base58BTC encodes
// to; building it by hand with mr-tron/base58 (rather than
// multibase.Encode) keeps construction and parsing on two independently
// verifiable code paths.
const multibasePrefixBase58BTC = "z"

// Method is the did:key back-end. Only Ed25519 keys are supported, the
// common case for did:key in practice.
type Method struct{}

func New() *Method { return &Method{} }

func (*Method) Name() string { return methodName }

func (*Method) Create(km *keymanager.Manager, opts did.CreateOptions) (did.BearerDid, error) {
	keyURI, err := km.GenerateKey("EdDSA")
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
	return did.BearerDid{URI: doc.ID, Document: *doc}, nil
}

func (*Method) Resolve(parsed did.ParsedDID) did.ResolutionResult {
	pub, err := publicJWKFromMethodSpecificID(parsed.MethodSpecificID)
	if err != nil {
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

// documentFromPublicJWK builds the multibase(multicodec(pubkey)) method-
// specific-id and the matching single-key document.
func documentFromPublicJWK(pub crypto.JWK) (*did.Document, error) {
	if pub.Kty != "OKP" || pub.Crv != "Ed25519" {
		return nil, fmt.Errorf("did:key only supports Ed25519 (OKP) keys, got kty=%s crv=%s", pub.Kty, pub.Crv)
	}
	xBytes, err := base64.RawURLEncoding.DecodeString(pub.X)
	if err != nil {
		return nil, err
	}

	prefixed := append(varint.ToUvarint(uint64(multicodec.Ed25519Pub)), xBytes...)
	methodSpecificID := multibasePrefixBase58BTC + base58.Encode(prefixed)

	docID := fmt.Sprintf("did:%s:%s", methodName, methodSpecificID)
	vmID := docID + "#" + methodSpecificID

	vm := did.VerificationMethod{
		ID:           vmID,
		Type:         "Ed25519VerificationKey2020",
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

func publicJWKFromMethodSpecificID(methodSpecificID string) (crypto.JWK, error) {
	_, data, err := multibase.Decode(methodSpecificID)
	if err != nil {
		return crypto.JWK{}, err
	}
	code, n, err := varint.FromUvarint(data)
	if err != nil {
		return crypto.JWK{}, err
	}
	if multicodec.Code(code) != multicodec.Ed25519Pub {
		return crypto.JWK{}, fmt.Errorf("unsupported did:key multicodec %d", code)
	}
	xBytes := data[n:]

	return crypto.JWK{
		Kty: "OKP",
		Crv: "Ed25519",
		Alg: "EdDSA",
		X:   base64.RawURLEncoding.EncodeToString(xBytes),
	}, nil
}
