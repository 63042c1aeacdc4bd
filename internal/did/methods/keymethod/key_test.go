package keymethod_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blackhole-pro/agentcore/internal/crypto"
	"github.com/blackhole-pro/agentcore/internal/did"
	"github.com/blackhole-pro/agentcore/internal/did/methods/keymethod"
	"github.com/blackhole-pro/agentcore/internal/keymanager"
)

func TestCreateThenResolveRoundTrip(t *testing.T) {
	km := keymanager.New(zaptest.NewLogger(t), crypto.NewRegistry())
	method := keymethod.New()

	bearer, err := method.Create(km, did.CreateOptions{})
	require.NoError(t, err)
	require.Contains(t, bearer.URI, "did:key:z")

	parsed, err := did.Parse(bearer.URI)
	require.NoError(t, err)

	result := method.Resolve(parsed)
	require.Empty(t, result.DidResolutionMetadata.Error)
	require.NotNil(t, result.DidDocument)
	assert.Equal(t, bearer.URI, result.DidDocument.ID)
	assert.Equal(t, bearer.Document.VerificationMethod[0].PublicKeyJwk.X, result.DidDocument.VerificationMethod[0].PublicKeyJwk.X)
}
