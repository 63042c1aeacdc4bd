package agent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blackhole-pro/agentcore/internal/agent"
	"github.com/blackhole-pro/agentcore/internal/did/methods/jwkmethod"
	"github.com/blackhole-pro/agentcore/internal/dwn"
	"github.com/blackhole-pro/agentcore/internal/vault"
)

func cheapWorkFactor() vault.WorkFactor {
	return vault.WorkFactor{Time: 1, Memory: 8 * 1024, Threads: 1}
}

func newTestAgent(t *testing.T) *agent.Agent {
	a := agent.New(
		agent.WithLogger(zaptest.NewLogger(t)),
		agent.WithVaultWorkFactor(cheapWorkFactor()),
		agent.WithDIDMethods(jwkmethod.New()),
	)
	t.Cleanup(a.Close)
	return a
}

func TestFirstLaunchBeforeInitialize(t *testing.T) {
	a := newTestAgent(t)
	assert.True(t, a.FirstLaunch())
}

func TestInitializeThenStartDerivesDhtAgentDid(t *testing.T) {
	a := newTestAgent(t)

	mnemonic, err := a.Initialize("correct horse battery staple", "")
	require.NoError(t, err)
	assert.NotEmpty(t, mnemonic)
	assert.False(t, a.FirstLaunch())

	require.NoError(t, a.Start("correct horse battery staple"))

	did1, err := a.AgentDID()
	require.NoError(t, err)
	assert.Contains(t, did1, "did:dht:")
}

func TestStartTwiceFailsAlreadyStarted(t *testing.T) {
	a := newTestAgent(t)
	_, err := a.Initialize("passphrase", "")
	require.NoError(t, err)
	require.NoError(t, a.Start("passphrase"))

	err = a.Start("passphrase")
	require.Error(t, err)
	var aErr *agent.Error
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, agent.KindAlreadyStarted, aErr.Kind)
}

func TestOperationsFailBeforeStart(t *testing.T) {
	a := newTestAgent(t)
	_, err := a.Initialize("passphrase", "")
	require.NoError(t, err)

	_, err = a.AgentDID()
	require.Error(t, err)

	_, err = a.ProcessDwnRequest(context.Background(), dwn.Request{})
	require.Error(t, err)
}

func TestRestoringAgentFromSeedRederivesSameDid(t *testing.T) {
	first := newTestAgent(t)
	mnemonic, err := first.Initialize("correct horse battery staple", "")
	require.NoError(t, err)
	require.NoError(t, first.Start("correct horse battery staple"))
	firstDid, err := first.AgentDID()
	require.NoError(t, err)

	second := newTestAgent(t)
	_, err = second.Initialize("a different passphrase", mnemonic)
	require.NoError(t, err)
	require.NoError(t, second.Start("a different passphrase"))
	secondDid, err := second.AgentDID()
	require.NoError(t, err)

	assert.Equal(t, firstDid, secondDid)
}

func TestInitializeRejectsInvalidRecoveryPhrase(t *testing.T) {
	a := newTestAgent(t)
	_, err := a.Initialize("passphrase", "not a real mnemonic at all")
	require.Error(t, err)

	var aErr *agent.Error
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, agent.KindInvalidRecoveryPhrase, aErr.Kind)
}

func TestProcessDwnRequestSynthesizesAcceptedWhenNotStored(t *testing.T) {
	a := newTestAgent(t)
	_, err := a.Initialize("passphrase", "")
	require.NoError(t, err)
	require.NoError(t, a.Start("passphrase"))

	agentDid, err := a.AgentDID()
	require.NoError(t, err)

	store := false
	result, err := a.ProcessDwnRequest(context.Background(), dwn.Request{
		Author:      agentDid,
		Target:      agentDid,
		MessageType: dwn.RecordsWrite,
		MessageParams: dwn.MessageParams{
			Protocol: "https://example.org/protocol",
		},
		Store: &store,
	})
	require.NoError(t, err)
	assert.Equal(t, 202, result.Reply.Status.Code)
	assert.NotEmpty(t, result.MessageCid)
}

func TestProcessDidRequestResolvesAgentDid(t *testing.T) {
	a := newTestAgent(t)
	_, err := a.Initialize("passphrase", "")
	require.NoError(t, err)
	require.NoError(t, a.Start("passphrase"))

	agentDid, err := a.AgentDID()
	require.NoError(t, err)

	result, err := a.ProcessDidRequest("resolve", agentDid)
	require.NoError(t, err)
	require.NotNil(t, result.DidDocument)
	assert.Equal(t, agentDid, result.DidDocument.ID)
}

func TestProcessDidRequestRejectsUnsupportedOperation(t *testing.T) {
	a := newTestAgent(t)
	_, err := a.ProcessDidRequest("deactivate", "did:dht:whatever")
	require.Error(t, err)
	var aErr *agent.Error
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, agent.KindNotImplemented, aErr.Kind)
}

func TestWithPermissionsCacheTTLIsUsable(t *testing.T) {
	a := agent.New(
		agent.WithLogger(zaptest.NewLogger(t)),
		agent.WithVaultWorkFactor(cheapWorkFactor()),
		agent.WithPermissionsCacheTTL(50*time.Millisecond),
	)
	defer a.Close()
	assert.NotNil(t, a.Permissions())
}
