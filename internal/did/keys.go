package did

import "github.com/blackhole-pro/agentcore/internal/keymanager"

// ToKeys enumerates bearer.Document's verification methods, exports each
// private key via km, and tags each with the relationships (purposes) it
// plays.
func ToKeys(km *keymanager.Manager, bearer BearerDid) (PortableDid, error) {
	portable := PortableDid{URI: bearer.URI, Document: bearer.Document}

	for _, vm := range bearer.Document.VerificationMethod {
		uri, err := km.GetKeyURI(vm.PublicKeyJwk)
		if err != nil {
			return PortableDid{}, err
		}
		priv, err := km.ExportKey(uri)
		if err != nil {
			return PortableDid{}, err
		}
		portable.PrivateKeys = append(portable.PrivateKeys, PortableKey{
			PrivateJwk: priv,
			Purposes:   bearer.Document.FindPurposes(vm.ID),
		})
	}

	return portable, nil
}

// FromKeys imports every private key in portable into km and reconstructs
// a BearerDid bound to a signer over the portable DID's default signing
// method (first assertionMethod entry, falling back to the first
// verification method, mirroring GetSigningMethod's typical behavior).
func FromKeys(km *keymanager.Manager, portable PortableDid) (BearerDid, error) {
	for _, pk := range portable.PrivateKeys {
		if _, err := km.ImportKey(pk.PrivateJwk, false); err != nil {
			return BearerDid{}, err
		}
	}

	doc := portable.Document
	signingVM, err := DefaultSigningMethod(&doc)
	if err != nil {
		return BearerDid{}, err
	}
	uri, err := km.GetKeyURI(signingVM.PublicKeyJwk)
	if err != nil {
		return BearerDid{}, err
	}

	return BearerDid{
		URI:      portable.URI,
		Document: doc,
		Signer:   &Signer{KeyURI: uri, km: km},
	}, nil
}

// DefaultSigningMethod picks the first assertionMethod entry, falling
// back to the first verification method. Concrete method back-ends use
// this as their GetSigningMethod unless a method has a more specific
// rule.
func DefaultSigningMethod(doc *Document) (*VerificationMethod, error) {
	if len(doc.AssertionMethod) > 0 {
		if vm, ok := doc.FindVerificationMethod(doc.AssertionMethod[0]); ok {
			return vm, nil
		}
	}
	if len(doc.VerificationMethod) > 0 {
		return &doc.VerificationMethod[0], nil
	}
	return nil, errNotFound("did document has no verification methods")
}
