package permissions_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blackhole-pro/agentcore/internal/crypto"
	"github.com/blackhole-pro/agentcore/internal/dwn"
	"github.com/blackhole-pro/agentcore/internal/keymanager"
	"github.com/blackhole-pro/agentcore/internal/permissions"
)

// recordStore is a minimal in-memory dwn.DWN: RecordsWrite appends,
// RecordsRead reports 200 if a record matching {protocolPath, parentId}
// exists and 404 otherwise — enough to exercise a revocation round trip
// without a real DWN implementation.
type recordStore struct {
	mu      sync.Mutex
	written []dwn.Message
}

func (s *recordStore) ProcessMessage(ctx context.Context, target string, msg dwn.Message, dataStream io.Reader) (dwn.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.Descriptor.Method {
	case "Write":
		s.written = append(s.written, msg)
		return dwn.Reply{Status: dwn.Status{Code: 202, Detail: "Accepted"}}, nil
	case "Read":
		for _, w := range s.written {
			if w.Descriptor.ProtocolPath == msg.Descriptor.ProtocolPath && w.Descriptor.ParentID == msg.Descriptor.ParentID {
				return dwn.Reply{Status: dwn.Status{Code: 200, Detail: "OK"}}, nil
			}
		}
		return dwn.Reply{Status: dwn.Status{Code: 404, Detail: "Not Found"}}, nil
	default:
		return dwn.Reply{Status: dwn.Status{Code: 202, Detail: "Accepted"}}, nil
	}
}

// fixedSigner resolves every author to the same key manager entry,
// mirroring the dwn package's own test fixture.
type fixedSigner struct {
	km     *keymanager.Manager
	keyURI string
}

func (f fixedSigner) ResolveSigner(author string) (dwn.Signer, error) {
	return dwn.Signer{KeyURI: f.keyURI, KM: f.km}, nil
}

func newTestManager(t *testing.T, store dwn.DWN) *permissions.Manager {
	km := keymanager.New(zaptest.NewLogger(t), crypto.NewRegistry())
	keyURI, err := km.GenerateKey("EdDSA")
	require.NoError(t, err)

	pipeline := dwn.NewPipeline(zaptest.NewLogger(t), fixedSigner{km: km, keyURI: keyURI}, store, "did:jwk:agent")
	m := permissions.NewManager(zaptest.NewLogger(t), pipeline, 50*time.Millisecond)
	t.Cleanup(m.Close)
	return m
}

func baseGrant() permissions.Grant {
	return permissions.Grant{
		ID:      "grant-1",
		Grantor: "did:jwk:grantor",
		Grantee: "did:jwk:grantee",
		Scope: permissions.Scope{
			Interface: "Records",
			Method:    "Write",
			Protocol:  "https://example/protocol",
		},
		DateExpires: time.Now().Add(1 * time.Hour),
	}
}

func baseLookup() permissions.RequestLookup {
	return permissions.RequestLookup{
		Grantor:     "did:jwk:grantor",
		Grantee:     "did:jwk:grantee",
		MessageType: "RecordsWrite",
		Protocol:    "https://example/protocol",
	}
}

func TestMatchGrantUnrestrictedScope(t *testing.T) {
	g, err := permissions.MatchGrant([]permissions.Grant{baseGrant()}, baseLookup())
	require.NoError(t, err)
	assert.Equal(t, "grant-1", g.ID)
}

func TestMatchGrantProtocolPathMatch(t *testing.T) {
	grant := baseGrant()
	grant.Scope.ProtocolPath = "post"
	lookup := baseLookup()
	lookup.ProtocolPath = "post"

	g, err := permissions.MatchGrant([]permissions.Grant{grant}, lookup)
	require.NoError(t, err)
	assert.Equal(t, grant.ID, g.ID)

	lookup.ProtocolPath = "comment"
	_, err = permissions.MatchGrant([]permissions.Grant{grant}, lookup)
	require.Error(t, err)
}

func TestMatchGrantContextIDPrefixMatch(t *testing.T) {
	grant := baseGrant()
	grant.Scope.ContextID = "thread/123"
	lookup := baseLookup()
	lookup.ContextID = "thread/123/reply/456"

	g, err := permissions.MatchGrant([]permissions.Grant{grant}, lookup)
	require.NoError(t, err)
	assert.Equal(t, grant.ID, g.ID)

	lookup.ContextID = "thread/999"
	_, err = permissions.MatchGrant([]permissions.Grant{grant}, lookup)
	require.Error(t, err)
}

func TestMatchGrantDelegatedRequirement(t *testing.T) {
	grant := baseGrant()
	lookup := baseLookup()
	lookup.Delegated = true

	_, err := permissions.MatchGrant([]permissions.Grant{grant}, lookup)
	require.Error(t, err)

	grant.Delegated = true
	g, err := permissions.MatchGrant([]permissions.Grant{grant}, lookup)
	require.NoError(t, err)
	assert.Equal(t, grant.ID, g.ID)
}

func TestMatchGrantMessagesInterfaceNoProtocolRestriction(t *testing.T) {
	grant := permissions.Grant{
		Grantor: "did:jwk:grantor",
		Grantee: "did:jwk:grantee",
		Scope:   permissions.Scope{Interface: "Messages", Method: "Get"},
		DateExpires: time.Now().Add(1 * time.Hour),
	}
	lookup := permissions.RequestLookup{
		Grantor:     "did:jwk:grantor",
		Grantee:     "did:jwk:grantee",
		MessageType: "MessagesGet",
		Protocol:    "https://example/anything",
	}
	g, err := permissions.MatchGrant([]permissions.Grant{grant}, lookup)
	require.NoError(t, err)
	assert.Equal(t, grant.Grantor, g.Grantor)
}

func TestMatchGrantFirstMatchWins(t *testing.T) {
	first := baseGrant()
	first.ID = "first"
	second := baseGrant()
	second.ID = "second"

	g, err := permissions.MatchGrant([]permissions.Grant{first, second}, baseLookup())
	require.NoError(t, err)
	assert.Equal(t, "first", g.ID)
}

func TestGrantCachePutGetAndMiss(t *testing.T) {
	cache := permissions.NewGrantCache(50 * time.Millisecond)
	defer cache.Close()

	grant := baseGrant()
	_, ok := cache.Get("did:jwk:grantor", "did:jwk:grantee", "RecordsWrite", "https://example/protocol")
	assert.False(t, ok)

	cache.Put("did:jwk:grantor", "did:jwk:grantee", "RecordsWrite", "https://example/protocol", grant)
	got, ok := cache.Get("did:jwk:grantor", "did:jwk:grantee", "RecordsWrite", "https://example/protocol")
	require.True(t, ok)
	assert.Equal(t, grant.ID, got.ID)

	time.Sleep(100 * time.Millisecond)
	_, ok = cache.Get("did:jwk:grantor", "did:jwk:grantee", "RecordsWrite", "https://example/protocol")
	assert.False(t, ok)
}

func TestCreateGrantProducesASignedWriteUnderProtocolPathGrant(t *testing.T) {
	store := &recordStore{}
	m := newTestManager(t, store)

	result, err := m.CreateGrant(context.Background(), "did:jwk:grantor", baseGrant())
	require.NoError(t, err)
	assert.Equal(t, 202, result.Reply.Status.Code)
	assert.Equal(t, permissions.ProtocolPathGrant, result.Message.Descriptor.ProtocolPath)
	assert.Equal(t, permissions.PermissionsProtocolURI, result.Message.Descriptor.Protocol)
	assert.NotEmpty(t, result.Message.Authorization.Signature)
}

func TestCreateRequestProducesASignedWriteUnderProtocolPathRequest(t *testing.T) {
	store := &recordStore{}
	m := newTestManager(t, store)

	req := permissions.Request{
		Grantor: "did:jwk:grantor",
		Grantee: "did:jwk:grantee",
		Scope:   permissions.Scope{Interface: "Records", Method: "Write", Protocol: "https://example/protocol"},
	}
	result, err := m.CreateRequest(context.Background(), "did:jwk:grantee", req)
	require.NoError(t, err)
	assert.Equal(t, 202, result.Reply.Status.Code)
	assert.Equal(t, permissions.ProtocolPathRequest, result.Message.Descriptor.ProtocolPath)
}

func TestIsGrantRevokedRoundTrip(t *testing.T) {
	store := &recordStore{}
	m := newTestManager(t, store)
	grant := baseGrant()

	revoked, err := m.IsGrantRevoked(context.Background(), "did:jwk:grantor", grant)
	require.NoError(t, err)
	assert.False(t, revoked, "no revocation record has been written yet")

	_, err = m.CreateRevocation(context.Background(), "did:jwk:grantor", permissions.Revocation{
		Grantee:         grant.Grantee,
		ParentContextID: grant.ID,
	})
	require.NoError(t, err)

	revoked, err = m.IsGrantRevoked(context.Background(), "did:jwk:grantor", grant)
	require.NoError(t, err)
	assert.True(t, revoked, "a revocation record now parents the grant's id")
}

func TestIsGrantRevokedFailsOnUnexpectedStatus(t *testing.T) {
	store := &faultyRecordStore{}
	m := newTestManager(t, store)

	_, err := m.IsGrantRevoked(context.Background(), "did:jwk:grantor", baseGrant())
	require.Error(t, err)
}

// faultyRecordStore always answers with a status RecordsRead never
// legitimately returns, exercising IsGrantRevoked's PermissionsLookupFailed
// path for any status other than 200/404.
type faultyRecordStore struct{}

func (faultyRecordStore) ProcessMessage(ctx context.Context, target string, msg dwn.Message, dataStream io.Reader) (dwn.Reply, error) {
	return dwn.Reply{Status: dwn.Status{Code: 500, Detail: "Internal Error"}}, nil
}

// TestLocalVersusRemoteRevocationCheckIsExpressedByPipelineChoice documents
// the local/remote distinction for IsGrantRevoked: it has no "remote bool"
// parameter of its own because a Manager is already bound to one
// dwn.Pipeline at construction, and that Pipeline's DWN is what determines
// whether a read is served in-process or dispatched to a remote peer (see
// dwn.RemoteDWN). A caller wanting both a local and a remote check
// constructs two Managers, each wrapping a Pipeline over the corresponding
// DWN, as demonstrated here against two independent local stores standing
// in for "local" and "remote".
func TestLocalVersusRemoteRevocationCheckIsExpressedByPipelineChoice(t *testing.T) {
	localStore := &recordStore{}
	remoteStore := &recordStore{}
	local := newTestManager(t, localStore)
	remote := newTestManager(t, remoteStore)

	grant := baseGrant()
	_, err := local.CreateRevocation(context.Background(), "did:jwk:grantor", permissions.Revocation{
		Grantee:         grant.Grantee,
		ParentContextID: grant.ID,
	})
	require.NoError(t, err)

	localRevoked, err := local.IsGrantRevoked(context.Background(), "did:jwk:grantor", grant)
	require.NoError(t, err)
	assert.True(t, localRevoked)

	remoteRevoked, err := remote.IsGrantRevoked(context.Background(), "did:jwk:grantor", grant)
	require.NoError(t, err)
	assert.False(t, remoteRevoked, "the revocation written against the local store never reached the independent remote-standing-in store")
}
