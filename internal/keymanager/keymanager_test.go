package keymanager_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blackhole-pro/agentcore/internal/crypto"
	"github.com/blackhole-pro/agentcore/internal/keymanager"
)

func TestGenerateKeyRoundTrip(t *testing.T) {
	m := keymanager.New(zaptest.NewLogger(t), nil)

	uri, err := m.GenerateKey("EdDSA")
	require.NoError(t, err)
	require.NotEmpty(t, uri)

	pub, err := m.GetPublicKey(uri)
	require.NoError(t, err)
	assert.False(t, pub.IsPrivate())

	gotURI, err := m.GetKeyURI(pub)
	require.NoError(t, err)
	assert.Equal(t, uri, gotURI)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	m := keymanager.New(zaptest.NewLogger(t), nil)
	uri, err := m.GenerateKey("ES256K")
	require.NoError(t, err)

	data := []byte("hello agent")
	sig, err := m.Sign(uri, data)
	require.NoError(t, err)

	pub, err := m.GetPublicKey(uri)
	require.NoError(t, err)

	ok, err := m.Verify(pub, sig, data)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestImportKeyPreventDuplicates(t *testing.T) {
	m := keymanager.New(zaptest.NewLogger(t), nil)
	registry := crypto.NewRegistry()
	key, err := registry.GenerateKey("EdDSA")
	require.NoError(t, err)

	uri, err := m.ImportKey(key, true)
	require.NoError(t, err)
	assert.NotEmpty(t, uri)

	_, err = m.ImportKey(key, true)
	require.Error(t, err)

	var kmErr *keymanager.Error
	require.ErrorAs(t, err, &kmErr)
	assert.Equal(t, keymanager.KindDuplicateKey, kmErr.Kind)
}

func TestImportKeyRejectsPublicOnly(t *testing.T) {
	m := keymanager.New(zaptest.NewLogger(t), nil)
	registry := crypto.NewRegistry()
	key, err := registry.GenerateKey("EdDSA")
	require.NoError(t, err)

	_, err = m.ImportKey(key.PublicJWK(), false)
	require.Error(t, err)
}

func TestExportUnknownKeyFails(t *testing.T) {
	m := keymanager.New(zaptest.NewLogger(t), nil)
	_, err := m.ExportKey("urn:jwk:does-not-exist")
	require.Error(t, err)

	var kmErr *keymanager.Error
	require.ErrorAs(t, err, &kmErr)
	assert.Equal(t, keymanager.KindKeyNotFound, kmErr.Kind)
}
