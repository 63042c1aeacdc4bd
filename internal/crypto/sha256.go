package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
)

// sha256Digest backs the digest-only "SHA-256" dispatch entry. It has no
// key material: Sign returns the raw digest of data, and Verify reports
// whether signature already equals that digest. Generate is unsupported
// since there is no key to generate.
type sha256Digest struct{}

func (sha256Digest) Generate() (JWK, error) {
	return JWK{}, errNotSupported("SHA-256", "")
}

func (sha256Digest) Sign(_ JWK, data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)
	return sum[:], nil
}

func (sha256Digest) Verify(_ JWK, data, signature []byte) (bool, error) {
	sum := sha256.Sum256(data)
	return subtle.ConstantTimeCompare(sum[:], signature) == 1, nil
}
