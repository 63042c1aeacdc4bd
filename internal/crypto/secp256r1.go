package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"math/big"

	gojose "github.com/go-jose/go-jose/v4"
)

// secp256r1Algorithm backs ES256 (NIST P-256), the curve registered in
// the standard JOSE algorithm set. Unlike secp256k1, P-256 is natively
// supported by go-jose's JSONWebKey marshaling, so key encode/decode goes
// through go-jose directly rather than the manual field encoding
// secp256k1 needs.
type secp256r1Algorithm struct{}

func (secp256r1Algorithm) Generate() (JWK, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return JWK{}, errInvalidKey("P-256 key generation failed", err)
	}
	return joseMarshalEC(priv)
}

func (secp256r1Algorithm) Sign(key JWK, data []byte) ([]byte, error) {
	priv, err := ecPrivateKey(key)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, priv, hash[:])
	if err != nil {
		return nil, errInvalidKey("P-256 signing failed", err)
	}
	return ecSignatureBytes(r, s), nil
}

func (secp256r1Algorithm) Verify(key JWK, data, signature []byte) (bool, error) {
	pub, err := ecPublicKey(key)
	if err != nil {
		return false, err
	}
	if len(signature) != 64 {
		return false, nil
	}
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	hash := sha256.Sum256(data)
	return ecdsa.Verify(pub, hash[:], r, s), nil
}

func ecSignatureBytes(r, s *big.Int) []byte {
	out := make([]byte, 64)
	r.FillBytes(out[:32])
	s.FillBytes(out[32:])
	return out
}

// joseMarshalEC round-trips an ecdsa.PrivateKey through go-jose's native
// EC JWK support to get RFC 7518-conformant x/y/d base64url fields.
func joseMarshalEC(priv *ecdsa.PrivateKey) (JWK, error) {
	jwkKey := gojose.JSONWebKey{Key: priv, Algorithm: "ES256", Use: "sig"}
	raw, err := jwkKey.MarshalJSON()
	if err != nil {
		return JWK{}, errInvalidKey("marshaling P-256 JWK via go-jose", err)
	}
	var out JWK
	if err := out.UnmarshalJSON(raw); err != nil {
		return JWK{}, errInvalidKey("decoding go-jose P-256 JWK", err)
	}
	out.Crv = "secp256r1"
	out.Alg = "ES256"
	return out, nil
}

func ecPublicKey(key JWK) (*ecdsa.PublicKey, error) {
	if key.X == "" || key.Y == "" {
		return nil, errInvalidKey("P-256 key missing x or y", nil)
	}
	raw, err := (JWK{Kty: "EC", Crv: "P-256", X: key.X, Y: key.Y}).MarshalJSON()
	if err != nil {
		return nil, errInvalidKey("re-marshaling P-256 public JWK", err)
	}
	var jwkKey gojose.JSONWebKey
	if err := jwkKey.UnmarshalJSON(raw); err != nil {
		return nil, errInvalidKey("go-jose rejected P-256 public JWK", err)
	}
	pub, ok := jwkKey.Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, errInvalidKey("go-jose did not return an ECDSA public key", nil)
	}
	return pub, nil
}

func ecPrivateKey(key JWK) (*ecdsa.PrivateKey, error) {
	if key.D == "" {
		return nil, errInvalidKey("P-256 key missing d (not a private key)", nil)
	}
	raw, err := (JWK{Kty: "EC", Crv: "P-256", X: key.X, Y: key.Y, D: key.D}).MarshalJSON()
	if err != nil {
		return nil, errInvalidKey("re-marshaling P-256 private JWK", err)
	}
	var jwkKey gojose.JSONWebKey
	if err := jwkKey.UnmarshalJSON(raw); err != nil {
		return nil, errInvalidKey("go-jose rejected P-256 private JWK", err)
	}
	priv, ok := jwkKey.Key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errInvalidKey("go-jose did not return an ECDSA private key", nil)
	}
	return priv, nil
}
