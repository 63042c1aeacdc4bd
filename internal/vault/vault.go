package vault

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/tyler-smith/go-bip39"
	"go.uber.org/zap"
)

const mnemonicEntropyBits = 128 // 12-word BIP-39 mnemonic

// DIDDeriver lets the vault hand its freshly-generated or re-derived seed
// to whatever owns DID creation (the agent facade, binding keymanager and
// the DID subsystem) without the vault importing either package directly.
// Initialize and Restore call it once, after a seed is available, to
// obtain the agent's own DID URI.
type DIDDeriver interface {
	DeriveDID(seed []byte) (didURI string, err error)
}

// noopDeriver is used when no DIDDeriver is configured; DID derivation is
// skipped and DIDURI stays empty until the caller sets one up separately.
type noopDeriver struct{}

func (noopDeriver) DeriveDID([]byte) (string, error) { return "", nil }

// Status is the externally observable state of a Vault.
type Status struct {
	Initialized bool
	Locked      bool
	DIDURI      string
}

// Backup is the output of Vault.Backup: a re-encrypted, versioned copy of
// the sealed state suitable for out-of-band storage.
type Backup struct {
	DateCreated time.Time
	Size        int
	Data        []byte
}

// Vault gates the agent behind a single passphrase, per the lock/unlock
// state machine: uninitialized -> initialized+unlocked <-> initialized+locked.
// Terminal states don't exist; a Vault may be re-locked indefinitely.
type Vault struct {
	log     *zap.Logger
	deriver DIDDeriver
	wf      WorkFactor

	mu          sync.Mutex
	initialized bool
	locked      bool
	didURI      string
	blob        sealedBlob
	seed        []byte // process-private; nil while locked
}

// Option configures a Vault at construction time.
type Option func(*Vault)

// WithDIDDeriver installs the component responsible for turning a raw
// seed into the agent's DID URI.
func WithDIDDeriver(d DIDDeriver) Option {
	return func(v *Vault) { v.deriver = d }
}

// WithWorkFactor overrides the password KDF's work factor, primarily so
// tests can run with a cheap Argon2id configuration.
func WithWorkFactor(wf WorkFactor) Option {
	return func(v *Vault) { v.wf = wf }
}

// New constructs an uninitialized Vault.
func New(log *zap.Logger, opts ...Option) *Vault {
	if log == nil {
		log = zap.NewNop()
	}
	v := &Vault{
		log:     log.With(zap.String("component", "vault")),
		deriver: noopDeriver{},
		wf:      DefaultWorkFactor(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Initialize seals either a caller-supplied seed or a freshly generated
// BIP-39 mnemonic's seed behind passphrase, derives the agent's DID URI,
// and leaves the vault initialized and unlocked. It returns the mnemonic
// when one was generated (empty when a caller seed was supplied).
func (v *Vault) Initialize(passphrase string, seed []byte) (mnemonic string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.initialized {
		return "", errAlreadyInitialized()
	}

	if seed == nil {
		entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
		if err != nil {
			return "", err
		}
		mnemonic, err = bip39.NewMnemonic(entropy)
		if err != nil {
			return "", err
		}
		seed = bip39.NewSeed(mnemonic, "")
	}

	didURI, err := v.deriver.DeriveDID(seed)
	if err != nil {
		return "", err
	}

	blob, err := seal(passphrase, v.wf, seed)
	if err != nil {
		return "", err
	}

	v.blob = blob
	v.seed = append([]byte(nil), seed...)
	v.didURI = didURI
	v.initialized = true
	v.locked = false

	v.log.Info("vault initialized", zap.String("didUri", didURI), zap.Bool("generatedMnemonic", mnemonic != ""))
	return mnemonic, nil
}

// Unlock re-derives the KEK and attempts decryption. Idempotent when
// already unlocked.
func (v *Vault) Unlock(passphrase string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return errNotInitialized()
	}
	if !v.locked {
		return nil
	}

	seed, err := unseal(passphrase, v.blob)
	if err != nil {
		return err
	}
	v.seed = seed
	v.locked = false
	v.log.Debug("vault unlocked")
	return nil
}

// Lock zeroizes the in-memory seed and marks the vault locked.
func (v *Vault) Lock() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return errNotInitialized()
	}
	zero(v.seed)
	v.seed = nil
	v.locked = true
	v.log.Debug("vault locked")
	return nil
}

// ChangePassphrase unlocks transiently with old, re-seals under a fresh
// KEK derived from new, and atomically swaps the persisted blob. On any
// failure the prior sealed state is untouched.
func (v *Vault) ChangePassphrase(old, new string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return false, errNotInitialized()
	}

	seed, err := unseal(old, v.blob)
	if err != nil {
		return false, err
	}

	newBlob, err := seal(new, v.wf, seed)
	if err != nil {
		return false, err
	}

	v.blob = newBlob
	if !v.locked {
		v.seed = seed
	}
	v.log.Info("vault passphrase changed")
	return true, nil
}

// Backup requires the vault be initialized (locked or unlocked) and
// returns a versioned, serialized copy of the sealed state.
func (v *Vault) Backup() (Backup, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return Backup{}, errNotInitialized()
	}

	data, err := json.Marshal(v.blob)
	if err != nil {
		return Backup{}, err
	}
	return Backup{DateCreated: time.Now(), Size: len(data), Data: data}, nil
}

// Restore verifies passphrase decrypts backup's payload, then atomically
// replaces the current vault state. On failure the prior state (if any)
// is retained.
func (v *Vault) Restore(backup Backup, passphrase string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	var blob sealedBlob
	if err := json.Unmarshal(backup.Data, &blob); err != nil {
		return errInvalidBackup("backup payload is not a recognizable vault blob", err)
	}
	if blob.Version != blobVersion {
		return errInvalidBackup("unsupported backup version", nil)
	}

	seed, err := unseal(passphrase, blob)
	if err != nil {
		return err
	}

	didURI, err := v.deriver.DeriveDID(seed)
	if err != nil {
		return err
	}

	v.blob = blob
	v.seed = seed
	v.didURI = didURI
	v.initialized = true
	v.locked = false

	v.log.Info("vault restored from backup", zap.String("didUri", didURI))
	return nil
}

// GetStatus reports the current state without requiring initialization.
func (v *Vault) GetStatus() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Status{Initialized: v.initialized, Locked: v.locked, DIDURI: v.didURI}
}

// Seed returns the process-private seed while unlocked. Exported for the
// agent facade's key-derivation needs, not a general accessor — callers
// outside this package's trust boundary should never persist the result.
func (v *Vault) Seed() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.initialized {
		return nil, errNotInitialized()
	}
	if v.locked {
		return nil, errLocked()
	}
	return append([]byte(nil), v.seed...), nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
