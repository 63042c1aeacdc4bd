// Package vault implements the identity vault: a passphrase-sealed BIP-39
// seed gating the agent's own signing key, built around a two-state
// locked/unlocked machine with an explicit state field guarded by a
// mutex and functional-option construction.
package vault

import "fmt"

// Kind discriminates vault error causes.
type Kind string

const (
	// KindNotInitialized is returned by every operation but Initialize,
	// Restore and GetStatus when the vault has never been initialized.
	KindNotInitialized Kind = "NOT_INITIALIZED"
	// KindIncorrectPassphrase is returned by Unlock, ChangePassphrase and
	// Restore when authenticated decryption fails. Deliberately the same
	// message regardless of whether the cause was a wrong passphrase or
	// corrupted ciphertext.
	KindIncorrectPassphrase Kind = "INCORRECT_PASSPHRASE"
	// KindInvalidBackup is returned by Restore when the backup payload is
	// structurally unreadable (bad version tag, truncated blob).
	KindInvalidBackup Kind = "INVALID_BACKUP"
	// KindAlreadyInitialized is returned by Initialize when called a
	// second time against the same vault.
	KindAlreadyInitialized Kind = "ALREADY_INITIALIZED"
	// KindLocked is returned by Seed when the vault is initialized but
	// currently locked.
	KindLocked Kind = "LOCKED"
)

// Error is the typed error returned by every operation in this package.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vault: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("vault: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func errNotInitialized() error {
	return &Error{Kind: KindNotInitialized, Message: "vault has not been initialized"}
}

func errAlreadyInitialized() error {
	return &Error{Kind: KindAlreadyInitialized, Message: "vault is already initialized"}
}

// errIncorrectPassphrase intentionally carries the same message whether
// the passphrase itself was wrong or the sealed blob is merely corrupt —
// the AEAD tag mismatch can't distinguish the two, and the error text
// must not leak which one occurred.
func errIncorrectPassphrase(cause error) error {
	return &Error{Kind: KindIncorrectPassphrase, Message: "passphrase incorrect or vault corrupted", Err: cause}
}

func errInvalidBackup(message string, cause error) error {
	return &Error{Kind: KindInvalidBackup, Message: message, Err: cause}
}

func errLocked() error {
	return &Error{Kind: KindLocked, Message: "vault is locked"}
}
