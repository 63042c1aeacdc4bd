package identitystore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blackhole-pro/agentcore/internal/did"
	"github.com/blackhole-pro/agentcore/internal/identitystore"
)

func TestSetGetListDelete(t *testing.T) {
	store := identitystore.New(zaptest.NewLogger(t), nil)

	record := did.PortableDid{URI: "did:jwk:abc"}
	require.NoError(t, store.Set("tenant-a", "id-1", record, false))

	got, err := store.Get("tenant-a", "id-1", true)
	require.NoError(t, err)
	assert.Equal(t, record.URI, got.URI)

	list, err := store.List("tenant-a", true)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete("tenant-a", "id-1"))
	_, err = store.Get("tenant-a", "id-1", true)
	require.Error(t, err)
}

func TestSetPreventDuplicates(t *testing.T) {
	store := identitystore.New(zaptest.NewLogger(t), nil)
	record := did.PortableDid{URI: "did:jwk:abc"}

	require.NoError(t, store.Set("tenant-a", "id-1", record, true))
	err := store.Set("tenant-a", "id-1", record, true)
	require.Error(t, err)

	var seErr *identitystore.Error
	require.ErrorAs(t, err, &seErr)
	assert.Equal(t, identitystore.KindDuplicateID, seErr.Kind)
}

func TestTenantIsolation(t *testing.T) {
	store := identitystore.New(zaptest.NewLogger(t), nil)
	require.NoError(t, store.Set("tenant-a", "id-1", did.PortableDid{URI: "did:jwk:a"}, false))
	require.NoError(t, store.Set("tenant-b", "id-1", did.PortableDid{URI: "did:jwk:b"}, false))

	gotA, err := store.Get("tenant-a", "id-1", true)
	require.NoError(t, err)
	gotB, err := store.Get("tenant-b", "id-1", true)
	require.NoError(t, err)

	assert.NotEqual(t, gotA.URI, gotB.URI)
}
