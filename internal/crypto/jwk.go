package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"sort"
)

// JWK is a JSON Web Key: required kty, and for signing keys alg/crv/x,
// optional y/d. Extra carries any additional members (use, key_ops, …) so
// round-tripping a key we didn't originate never silently drops data.
type JWK struct {
	Kty   string                 `json:"kty"`
	Alg   string                 `json:"alg,omitempty"`
	Crv   string                 `json:"crv,omitempty"`
	Kid   string                 `json:"kid,omitempty"`
	X     string                 `json:"x,omitempty"`
	Y     string                 `json:"y,omitempty"`
	D     string                 `json:"d,omitempty"`
	Extra map[string]interface{} `json:"-"`
}

// IsPrivate reports whether the JWK carries private key material.
func (k JWK) IsPrivate() bool { return k.D != "" }

// PublicJWK returns a deep copy of k with the private member stripped and
// kid filled from the thumbprint if it was absent.
func (k JWK) PublicJWK() JWK {
	pub := k.Clone()
	pub.D = ""
	if pub.Kid == "" {
		if tp, err := ComputeThumbprint(pub); err == nil {
			pub.Kid = tp
		}
	}
	return pub
}

// Clone returns a deep copy, used anywhere a caller must not be able to
// mutate a key manager's internal storage through an exported JWK value.
func (k JWK) Clone() JWK {
	clone := k
	if k.Extra != nil {
		clone.Extra = make(map[string]interface{}, len(k.Extra))
		for kk, vv := range k.Extra {
			clone.Extra[kk] = vv
		}
	}
	return clone
}

// MarshalJSON flattens Extra alongside the named fields.
func (k JWK) MarshalJSON() ([]byte, error) {
	type alias JWK
	base, err := json.Marshal(alias(k))
	if err != nil {
		return nil, err
	}
	if len(k.Extra) == 0 {
		return base, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for kk, vv := range k.Extra {
		if _, exists := m[kk]; !exists {
			m[kk] = vv
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON captures unrecognized members into Extra.
func (k *JWK) UnmarshalJSON(data []byte) error {
	type alias JWK
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for _, known := range []string{"kty", "alg", "crv", "kid", "x", "y", "d"} {
		delete(m, known)
	}
	*k = JWK(a)
	if len(m) > 0 {
		k.Extra = m
	}
	return nil
}

// thumbprintMembers returns the RFC 7638 canonical member set for a kty,
// i.e. only the members that participate in the thumbprint hash.
func thumbprintMembers(k JWK) (map[string]string, error) {
	switch k.Kty {
	case "OKP":
		if k.Crv == "" || k.X == "" {
			return nil, errInvalidKey("OKP JWK missing crv or x", nil)
		}
		return map[string]string{"crv": k.Crv, "kty": k.Kty, "x": k.X}, nil
	case "EC":
		if k.Crv == "" || k.X == "" || k.Y == "" {
			return nil, errInvalidKey("EC JWK missing crv, x or y", nil)
		}
		return map[string]string{"crv": k.Crv, "kty": k.Kty, "x": k.X, "y": k.Y}, nil
	case "oct":
		if k.X == "" {
			return nil, errInvalidKey("oct JWK missing k", nil)
		}
		return map[string]string{"kty": k.Kty, "k": k.X}, nil
	default:
		return nil, errInvalidKey("unsupported kty for thumbprint: "+k.Kty, nil)
	}
}

// ComputeThumbprint computes the RFC 7638 thumbprint over k's canonical
// public members: lexicographically sorted keys, no insignificant
// whitespace, SHA-256 digested, base64url (no padding) encoded.
func ComputeThumbprint(k JWK) (string, error) {
	members, err := thumbprintMembers(k)
	if err != nil {
		return "", err
	}
	keys := make([]string, 0, len(members))
	for name := range members {
		keys = append(keys, name)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		nameJSON, _ := json.Marshal(name)
		valJSON, _ := json.Marshal(members[name])
		buf.Write(nameJSON)
		buf.WriteByte(':')
		buf.Write(valJSON)
	}
	buf.WriteByte('}')

	sum := sha256.Sum256(buf.Bytes())
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// KeyURI returns the urn:jwk:<thumbprint> identifier for k's public
// members. Two JWKs with identical public members yield identical URIs,
// which is what lets a private JWK and its exported public JWK compare
// equal under KeyURI.
func KeyURI(k JWK) (string, error) {
	tp, err := ComputeThumbprint(k)
	if err != nil {
		return "", err
	}
	return "urn:jwk:" + tp, nil
}
