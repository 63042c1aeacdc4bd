package did

import (
	"fmt"
	"strings"

	"github.com/blackhole-pro/agentcore/internal/crypto"
)

// VerificationMethod is a single key entry in a DID document.
type VerificationMethod struct {
	ID                 string     `json:"id"`
	Type               string     `json:"type"`
	Controller         string     `json:"controller"`
	PublicKeyJwk       crypto.JWK `json:"publicKeyJwk"`
}

// Service is a DID document service endpoint entry.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// Document is a DID document, restricted to the members this subsystem
// actually reasons about: verificationMethod and the relationship
// arrays.
type Document struct {
	ID                   string                `json:"id"`
	VerificationMethod   []VerificationMethod  `json:"verificationMethod"`
	Authentication       []string              `json:"authentication,omitempty"`
	AssertionMethod      []string              `json:"assertionMethod,omitempty"`
	KeyAgreement         []string              `json:"keyAgreement,omitempty"`
	CapabilityInvocation []string              `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []string              `json:"capabilityDelegation,omitempty"`
	Service              []Service             `json:"service,omitempty"`
}

// FindVerificationMethod returns the verification method whose id equals
// methodID, or whose fragment equals methodID's fragment when methodID is
// a bare fragment ("#key-1").
func (d *Document) FindVerificationMethod(methodID string) (*VerificationMethod, bool) {
	for i := range d.VerificationMethod {
		vm := &d.VerificationMethod[i]
		if vm.ID == methodID || fragmentOf(vm.ID) == fragmentOf(methodID) {
			return vm, true
		}
	}
	return nil, false
}

func fragmentOf(id string) string {
	if i := strings.IndexByte(id, '#'); i >= 0 {
		return id[i:]
	}
	return id
}

// relationshipSets names every relationship array FindPurposes reverse-
// looks-up across.
func (d *Document) relationshipSets() map[string][]string {
	return map[string][]string{
		"authentication":       d.Authentication,
		"assertionMethod":      d.AssertionMethod,
		"keyAgreement":         d.KeyAgreement,
		"capabilityInvocation": d.CapabilityInvocation,
		"capabilityDelegation": d.CapabilityDelegation,
	}
}

// FindPurposes returns every relationship name whose array references
// methodID (by full id or bare fragment), used by toKeys to attach
// purposes to each exported key.
func (d *Document) FindPurposes(methodID string) []string {
	var purposes []string
	frag := fragmentOf(methodID)
	for name, ids := range d.relationshipSets() {
		for _, id := range ids {
			if id == methodID || fragmentOf(id) == frag {
				purposes = append(purposes, name)
				break
			}
		}
	}
	return purposes
}

// ResolutionMetadata is an error-only metadata object; an empty Error
// means resolution succeeded.
type ResolutionMetadata struct {
	Error string `json:"error,omitempty"`
}

// ResolutionResult is the output of Resolve.
type ResolutionResult struct {
	DidResolutionMetadata ResolutionMetadata `json:"didResolutionMetadata"`
	DidDocument           *Document          `json:"didDocument"`
}

// Clone returns a deep-enough copy for cache retrieval: callers must not
// be able to mutate a cached document through the returned value.
func (r ResolutionResult) Clone() ResolutionResult {
	clone := r
	if r.DidDocument != nil {
		doc := *r.DidDocument
		doc.VerificationMethod = append([]VerificationMethod(nil), r.DidDocument.VerificationMethod...)
		doc.Authentication = append([]string(nil), r.DidDocument.Authentication...)
		doc.AssertionMethod = append([]string(nil), r.DidDocument.AssertionMethod...)
		doc.KeyAgreement = append([]string(nil), r.DidDocument.KeyAgreement...)
		doc.CapabilityInvocation = append([]string(nil), r.DidDocument.CapabilityInvocation...)
		doc.CapabilityDelegation = append([]string(nil), r.DidDocument.CapabilityDelegation...)
		doc.Service = append([]Service(nil), r.DidDocument.Service...)
		clone.DidDocument = &doc
	}
	return clone
}

// PortableDid is the serializable form of a DID identity: the document
// plus every private key it references, each tagged with the
// relationships it plays.
type PortableDid struct {
	URI         string        `json:"uri"`
	Document    Document      `json:"document"`
	PrivateKeys []PortableKey `json:"privateKeys"`
}

// PortableKey pairs a private JWK with the relationship names
// (purposes) the corresponding verification method participates in.
type PortableKey struct {
	PrivateJwk crypto.JWK `json:"privateJwk"`
	Purposes   []string   `json:"purposes"`
}

// BearerDid is the live, signing-capable counterpart to a PortableDid:
// the document plus a Signer bound to the agent's key manager, not raw
// key material.
type BearerDid struct {
	URI      string
	Document Document
	Signer   *Signer
}

// URI composes a did:<method>:<id> string.
func URI(method, methodSpecificID string) string {
	return fmt.Sprintf("did:%s:%s", method, methodSpecificID)
}
