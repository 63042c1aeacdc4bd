package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// secp256k1Algorithm backs ES256K. Key generation goes through btcec, the
// lighter-weight secp256k1 curve implementation; signing and verification
// reuse go-ethereum/crypto's secp256k1 bindings for
// EcdsaSecp256k1VerificationKey2019. Unlike Ethereum's on-chain signature
// scheme (which hashes with Keccak256 for consensus compatibility),
// ES256K per RFC 8812 hashes with plain SHA-256.
type secp256k1Algorithm struct{}

const fieldByteLen = 32

func (secp256k1Algorithm) Generate() (JWK, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return JWK{}, errInvalidKey("secp256k1 key generation failed", err)
	}
	ecdsaPriv := priv.ToECDSA()

	x := make([]byte, fieldByteLen)
	y := make([]byte, fieldByteLen)
	ecdsaPriv.X.FillBytes(x)
	ecdsaPriv.Y.FillBytes(y)
	d := make([]byte, fieldByteLen)
	ecdsaPriv.D.FillBytes(d)

	return JWK{
		Kty: "EC",
		Crv: "secp256k1",
		Alg: "ES256K",
		X:   base64.RawURLEncoding.EncodeToString(x),
		Y:   base64.RawURLEncoding.EncodeToString(y),
		D:   base64.RawURLEncoding.EncodeToString(d),
	}, nil
}

func (secp256k1Algorithm) Sign(key JWK, data []byte) ([]byte, error) {
	if key.D == "" {
		return nil, errInvalidKey("secp256k1 key missing d (not a private key)", nil)
	}
	dBytes, err := base64.RawURLEncoding.DecodeString(key.D)
	if err != nil {
		return nil, errInvalidKey("secp256k1 d is not valid base64url", err)
	}
	priv, _ := btcec.PrivKeyFromBytes(dBytes)
	ecdsaPriv := priv.ToECDSA()

	hash := sha256.Sum256(data)
	sig, err := ethcrypto.Sign(hash[:], ecdsaPriv)
	if err != nil {
		return nil, errInvalidKey("secp256k1 signing failed", err)
	}
	// Drop the recovery id: ES256K signatures are the bare 64-byte R||S.
	return sig[:64], nil
}

func (secp256k1Algorithm) Verify(key JWK, data, signature []byte) (bool, error) {
	pub, err := secp256k1PublicKeyBytes(key)
	if err != nil {
		return false, err
	}
	if len(signature) != 64 && len(signature) != 65 {
		return false, nil
	}
	hash := sha256.Sum256(data)
	return ethcrypto.VerifySignature(pub, hash[:], signature[:64]), nil
}

// secp256k1PublicKeyBytes returns the 65-byte uncompressed (0x04||X||Y)
// encoding go-ethereum's VerifySignature expects.
func secp256k1PublicKeyBytes(key JWK) ([]byte, error) {
	if key.X == "" || key.Y == "" {
		return nil, errInvalidKey("secp256k1 key missing x or y", nil)
	}
	x, err := base64.RawURLEncoding.DecodeString(key.X)
	if err != nil {
		return nil, errInvalidKey("secp256k1 x is not valid base64url", err)
	}
	y, err := base64.RawURLEncoding.DecodeString(key.Y)
	if err != nil {
		return nil, errInvalidKey("secp256k1 y is not valid base64url", err)
	}
	out := make([]byte, 1+2*fieldByteLen)
	out[0] = 0x04
	new(big.Int).SetBytes(x).FillBytes(out[1 : 1+fieldByteLen])
	new(big.Int).SetBytes(y).FillBytes(out[1+fieldByteLen:])
	return out, nil
}
