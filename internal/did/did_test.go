package did_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blackhole-pro/agentcore/internal/crypto"
	"github.com/blackhole-pro/agentcore/internal/did"
	"github.com/blackhole-pro/agentcore/internal/keymanager"
)

func TestParseValidAndInvalid(t *testing.T) {
	p, err := did.Parse("did:jwk:abc123#key-1")
	require.NoError(t, err)
	assert.Equal(t, "jwk", p.Method)
	assert.Equal(t, "abc123", p.MethodSpecificID)
	assert.Equal(t, "key-1", p.Fragment)

	_, err = did.Parse("not-a-did")
	require.Error(t, err)
}

// stubMethod is a minimal Method back-end used only to exercise the
// registry/resolver/signer machinery without a real did:jwk document
// construction dependency.
type stubMethod struct {
	name string
	km   *keymanager.Manager
	doc  *did.Document
	fail bool
}

func (s *stubMethod) Name() string { return s.name }

func (s *stubMethod) Create(km *keymanager.Manager, opts did.CreateOptions) (did.BearerDid, error) {
	return did.BearerDid{}, nil
}

func (s *stubMethod) Resolve(parsed did.ParsedDID) did.ResolutionResult {
	if s.fail {
		return did.ResolutionResult{DidResolutionMetadata: did.ResolutionMetadata{Error: "notFound"}}
	}
	return did.ResolutionResult{DidDocument: s.doc}
}

func (s *stubMethod) GetSigningMethod(doc *did.Document) (*did.VerificationMethod, error) {
	return did.DefaultSigningMethod(doc)
}

func buildStubDocument(t *testing.T, km *keymanager.Manager) (*did.Document, string) {
	uri, err := km.GenerateKey("EdDSA")
	require.NoError(t, err)
	pub, err := km.GetPublicKey(uri)
	require.NoError(t, err)

	vmID := "did:stub:abc#key-1"
	doc := &did.Document{
		ID: "did:stub:abc",
		VerificationMethod: []did.VerificationMethod{
			{ID: vmID, Type: "JsonWebKey2020", Controller: "did:stub:abc", PublicKeyJwk: pub},
		},
		AssertionMethod: []string{vmID},
	}
	return doc, uri
}

func TestResolveCachesOnlySuccess(t *testing.T) {
	km := keymanager.New(zaptest.NewLogger(t), crypto.NewRegistry())
	doc, _ := buildStubDocument(t, km)

	registry := did.NewRegistry(zaptest.NewLogger(t))
	registry.Register(&stubMethod{name: "stub", doc: doc})
	registry.Register(&stubMethod{name: "failing", fail: true})

	result := registry.Resolve("did:stub:abc")
	require.Empty(t, result.DidResolutionMetadata.Error)
	require.NotNil(t, result.DidDocument)

	failResult := registry.Resolve("did:failing:xyz")
	assert.Equal(t, "notFound", failResult.DidResolutionMetadata.Error)

	// unregistered method
	unsupported := registry.Resolve("did:nope:xyz")
	assert.Equal(t, "methodNotSupported", unsupported.DidResolutionMetadata.Error)

	// invalid uri
	invalid := registry.Resolve("garbage")
	assert.Equal(t, "invalidDid", invalid.DidResolutionMetadata.Error)
}

func TestResolveCacheExpiresByTTL(t *testing.T) {
	km := keymanager.New(zaptest.NewLogger(t), crypto.NewRegistry())
	doc, _ := buildStubDocument(t, km)

	registry := did.NewRegistry(zaptest.NewLogger(t))
	registry.SetCacheTTL(1 * time.Millisecond)
	registry.Register(&stubMethod{name: "stub", doc: doc})

	first := registry.Resolve("did:stub:abc")
	require.NotNil(t, first.DidDocument)

	time.Sleep(5 * time.Millisecond)
	second := registry.Resolve("did:stub:abc")
	require.NotNil(t, second.DidDocument)
}

func TestGetSignerWithExplicitKeyURI(t *testing.T) {
	km := keymanager.New(zaptest.NewLogger(t), crypto.NewRegistry())
	doc, keyURI := buildStubDocument(t, km)
	method := &stubMethod{name: "stub", doc: doc}

	signer, err := did.GetSigner(km, method, doc, keyURI)
	require.NoError(t, err)
	assert.Equal(t, keyURI, signer.KeyURI)

	sig, err := signer.Sign([]byte("payload"))
	require.NoError(t, err)
	pub, err := km.GetPublicKey(keyURI)
	require.NoError(t, err)
	ok, err := signer.Verify(pub, sig, []byte("payload"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetSignerRejectsKeyNotInDocument(t *testing.T) {
	km := keymanager.New(zaptest.NewLogger(t), crypto.NewRegistry())
	doc, _ := buildStubDocument(t, km)
	method := &stubMethod{name: "stub", doc: doc}

	foreignURI, err := km.GenerateKey("EdDSA")
	require.NoError(t, err)

	_, err = did.GetSigner(km, method, doc, foreignURI)
	require.Error(t, err)

	var didErr *did.Error
	require.ErrorAs(t, err, &didErr)
	assert.Equal(t, did.KindKeyNotInDidDocument, didErr.Kind)
}

func TestToKeysFromKeysRoundTrip(t *testing.T) {
	km := keymanager.New(zaptest.NewLogger(t), crypto.NewRegistry())
	doc, keyURI := buildStubDocument(t, km)

	bearer := did.BearerDid{URI: doc.ID, Document: *doc, Signer: &did.Signer{KeyURI: keyURI}}
	portable, err := did.ToKeys(km, bearer)
	require.NoError(t, err)
	require.Len(t, portable.PrivateKeys, 1)
	assert.Contains(t, portable.PrivateKeys[0].Purposes, "assertionMethod")

	km2 := keymanager.New(zaptest.NewLogger(t), crypto.NewRegistry())
	reconstructed, err := did.FromKeys(km2, portable)
	require.NoError(t, err)
	assert.Equal(t, bearer.URI, reconstructed.URI)
	assert.Equal(t, keyURI, reconstructed.Signer.KeyURI)

	portableAgain, err := did.ToKeys(km2, reconstructed)
	require.NoError(t, err)
	assert.Equal(t, portable.URI, portableAgain.URI)
	assert.Equal(t, len(portable.PrivateKeys), len(portableAgain.PrivateKeys))
}

func TestDereferenceFragmentAndDocument(t *testing.T) {
	km := keymanager.New(zaptest.NewLogger(t), crypto.NewRegistry())
	doc, _ := buildStubDocument(t, km)

	registry := did.NewRegistry(zaptest.NewLogger(t))
	registry.Register(&stubMethod{name: "stub", doc: doc})

	full, err := registry.Dereference("did:stub:abc")
	require.NoError(t, err)
	assert.IsType(t, &did.Document{}, full)

	vm, err := registry.Dereference("did:stub:abc#key-1")
	require.NoError(t, err)
	assert.IsType(t, &did.VerificationMethod{}, vm)

	_, err = registry.Dereference("did:stub:abc#missing")
	require.Error(t, err)
}
