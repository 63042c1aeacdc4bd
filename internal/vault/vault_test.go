package vault_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blackhole-pro/agentcore/internal/vault"
)

// testWorkFactor keeps Argon2id cheap so unit tests don't pay production
// KDF cost on every run.
func testWorkFactor() vault.WorkFactor {
	return vault.WorkFactor{Time: 1, Memory: 8 * 1024, Threads: 1}
}

type stubDeriver struct{ didURI string }

func (s stubDeriver) DeriveDID(seed []byte) (string, error) {
	return s.didURI, nil
}

func newTestVault(t *testing.T) *vault.Vault {
	return vault.New(zaptest.NewLogger(t),
		vault.WithWorkFactor(testWorkFactor()),
		vault.WithDIDDeriver(stubDeriver{didURI: "did:jwk:stub"}),
	)
}

func TestInitializeGeneratesMnemonicAndDID(t *testing.T) {
	v := newTestVault(t)

	mnemonic, err := v.Initialize("correct horse battery staple", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, mnemonic)

	status := v.GetStatus()
	assert.True(t, status.Initialized)
	assert.False(t, status.Locked)
	assert.Equal(t, "did:jwk:stub", status.DIDURI)
}

func TestUnlockWithWrongPassphraseFails(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Initialize("correct horse battery staple", nil)
	require.NoError(t, err)
	require.NoError(t, v.Lock())

	err = v.Unlock("wrong passphrase")
	require.Error(t, err)

	var vErr *vault.Error
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, vault.KindIncorrectPassphrase, vErr.Kind)
}

func TestLockThenUnlockRoundTrip(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Initialize("correct horse battery staple", []byte("deterministic seed bytes padded to len"))
	require.NoError(t, err)

	require.NoError(t, v.Lock())
	status := v.GetStatus()
	assert.True(t, status.Locked)

	_, err = v.Seed()
	require.Error(t, err)
	var vErr *vault.Error
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, vault.KindLocked, vErr.Kind)

	require.NoError(t, v.Unlock("correct horse battery staple"))
	seed, err := v.Seed()
	require.NoError(t, err)
	assert.Equal(t, []byte("deterministic seed bytes padded to len"), seed)
}

func TestUnlockIsIdempotentWhenAlreadyUnlocked(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Initialize("correct horse battery staple", nil)
	require.NoError(t, err)

	require.NoError(t, v.Unlock("correct horse battery staple"))
}

func TestEveryOperationFailsBeforeInitialize(t *testing.T) {
	v := newTestVault(t)

	_, err := v.Seed()
	require.Error(t, err)

	err = v.Lock()
	require.Error(t, err)

	err = v.Unlock("anything")
	require.Error(t, err)

	_, err = v.Backup()
	require.Error(t, err)
}

func TestChangePassphraseIsAtomicOnFailure(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Initialize("original passphrase", nil)
	require.NoError(t, err)

	ok, err := v.ChangePassphrase("wrong old passphrase", "new passphrase")
	require.Error(t, err)
	assert.False(t, ok)

	require.NoError(t, v.Lock())
	require.NoError(t, v.Unlock("original passphrase"))
}

func TestChangePassphraseThenUnlockWithNewPassphrase(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Initialize("original passphrase", nil)
	require.NoError(t, err)

	ok, err := v.ChangePassphrase("original passphrase", "new passphrase")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, v.Lock())
	require.NoError(t, v.Unlock("new passphrase"))
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Initialize("correct horse battery staple", nil)
	require.NoError(t, err)

	backup, err := v.Backup()
	require.NoError(t, err)
	assert.NotZero(t, backup.Size)

	restored := newTestVault(t)
	require.NoError(t, restored.Restore(backup, "correct horse battery staple"))

	status := restored.GetStatus()
	assert.True(t, status.Initialized)
	assert.False(t, status.Locked)
}

func TestRestoreWithWrongPassphraseLeavesPriorStateIntact(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Initialize("correct horse battery staple", nil)
	require.NoError(t, err)
	backup, err := v.Backup()
	require.NoError(t, err)

	other := newTestVault(t)
	_, err = other.Initialize("another vault's passphrase", nil)
	require.NoError(t, err)

	err = other.Restore(backup, "wrong passphrase for backup")
	require.Error(t, err)

	status := other.GetStatus()
	assert.True(t, status.Initialized)
	assert.False(t, status.Locked)
}

func TestRestoreRejectsMalformedBackup(t *testing.T) {
	v := newTestVault(t)
	err := v.Restore(vault.Backup{Data: []byte("not a valid blob")}, "anything")
	require.Error(t, err)

	var vErr *vault.Error
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, vault.KindInvalidBackup, vErr.Kind)
}
