package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"

	gojose "github.com/go-jose/go-jose/v4"
)

// ed25519Algorithm backs the EdDSA+Ed25519 dispatch entry. Key material
// is marshaled through go-jose's OKP support so the x/d encoding matches
// RFC 8037 byte-for-byte rather than a hand-rolled base64url pass.
type ed25519Algorithm struct{}

func (ed25519Algorithm) Generate() (JWK, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return JWK{}, errInvalidKey("ed25519 key generation failed", err)
	}
	return joseMarshalOKP(priv, pub)
}

func (ed25519Algorithm) Sign(key JWK, data []byte) ([]byte, error) {
	priv, err := okpPrivateKey(key)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, data), nil
}

func (ed25519Algorithm) Verify(key JWK, data, signature []byte) (bool, error) {
	pub, err := okpPublicKey(key)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, data, signature), nil
}

// joseMarshalOKP round-trips an Ed25519 key pair through go-jose's
// JSONWebKey marshaling to obtain RFC 8037-conformant x (and, for a
// private key, d) base64url encodings.
func joseMarshalOKP(priv ed25519.PrivateKey, pub ed25519.PublicKey) (JWK, error) {
	jwkKey := gojose.JSONWebKey{Key: priv, Algorithm: "EdDSA", Use: "sig"}
	raw, err := jwkKey.MarshalJSON()
	if err != nil {
		return JWK{}, errInvalidKey("marshaling ed25519 JWK via go-jose", err)
	}
	var out JWK
	if err := out.UnmarshalJSON(raw); err != nil {
		return JWK{}, errInvalidKey("decoding go-jose ed25519 JWK", err)
	}
	out.Kty = "OKP"
	out.Crv = "Ed25519"
	out.Alg = "EdDSA"
	if out.X == "" {
		// go-jose <v4 OKP support can be partial; fall back to a direct
		// encoding of the raw public key bytes.
		out.X = base64.RawURLEncoding.EncodeToString(pub)
	}
	if out.D == "" && len(priv) == ed25519.PrivateKeySize {
		out.D = base64.RawURLEncoding.EncodeToString(priv.Seed())
	}
	return out, nil
}

// DeriveEd25519FromSeed deterministically derives an Ed25519 key pair
// from the first ed25519.SeedSize bytes of seed. Used by the vault's DID
// derivation path, where the agent's own signing key must be
// reproducible from its BIP-39 seed rather than freshly randomized.
func DeriveEd25519FromSeed(seed []byte) (JWK, error) {
	if len(seed) < ed25519.SeedSize {
		return JWK{}, errInvalidKey("seed shorter than an ed25519 seed", nil)
	}
	priv := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	key, err := joseMarshalOKP(priv, priv.Public().(ed25519.PublicKey))
	if err != nil {
		return JWK{}, err
	}
	tp, err := ComputeThumbprint(key.PublicJWK())
	if err != nil {
		return JWK{}, err
	}
	key.Kid = tp
	return key, nil
}

func okpPublicKey(key JWK) (ed25519.PublicKey, error) {
	if key.X == "" {
		return nil, errInvalidKey("OKP key missing x", nil)
	}
	raw, err := base64.RawURLEncoding.DecodeString(key.X)
	if err != nil {
		return nil, errInvalidKey("OKP x is not valid base64url", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errInvalidKey("OKP x has unexpected length", nil)
	}
	return ed25519.PublicKey(raw), nil
}

func okpPrivateKey(key JWK) (ed25519.PrivateKey, error) {
	if key.D == "" {
		return nil, errInvalidKey("OKP key missing d (not a private key)", nil)
	}
	seed, err := base64.RawURLEncoding.DecodeString(key.D)
	if err != nil {
		return nil, errInvalidKey("OKP d is not valid base64url", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, errInvalidKey("OKP d has unexpected length", nil)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
