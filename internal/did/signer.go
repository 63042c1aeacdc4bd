package did

import (
	"github.com/blackhole-pro/agentcore/internal/crypto"
	"github.com/blackhole-pro/agentcore/internal/keymanager"
)

// Signer binds sign/verify to a specific key manager entry, delegating
// Sign to the key manager's sign-by-URI operation and Verify to its
// verify-against-public-key operation.
type Signer struct {
	KeyURI string
	km     *keymanager.Manager
}

func (s *Signer) Sign(data []byte) ([]byte, error) {
	return s.km.Sign(s.KeyURI, data)
}

func (s *Signer) Verify(public crypto.JWK, signature, data []byte) (bool, error) {
	return s.km.Verify(public, signature, data)
}

// GetSigner constructs a Signer for doc. When keyUri is non-empty it must
// name a verification method present in doc (matched by thumbprint
// equality of the public JWK); otherwise method's GetSigningMethod picks
// the default verification method.
func GetSigner(km *keymanager.Manager, method Method, doc *Document, keyURI string) (*Signer, error) {
	if keyURI != "" {
		pub, err := km.GetPublicKey(keyURI)
		if err != nil {
			return nil, err
		}
		if !documentContainsKeyURI(doc, keyURI) {
			_ = pub
			return nil, errKeyNotInDidDocument(keyURI)
		}
		return &Signer{KeyURI: keyURI, km: km}, nil
	}

	vm, err := method.GetSigningMethod(doc)
	if err != nil {
		return nil, err
	}
	uri, err := km.GetKeyURI(vm.PublicKeyJwk)
	if err != nil {
		return nil, err
	}
	if _, err := km.GetPublicKey(uri); err != nil {
		return nil, err
	}
	return &Signer{KeyURI: uri, km: km}, nil
}

// documentContainsKeyURI reports whether any verification method in doc
// has a publicKeyJwk whose Key URI equals keyURI via thumbprint equality.
func documentContainsKeyURI(doc *Document, keyURI string) bool {
	for _, vm := range doc.VerificationMethod {
		uri, err := crypto.KeyURI(vm.PublicKeyJwk)
		if err == nil && uri == keyURI {
			return true
		}
	}
	return false
}
