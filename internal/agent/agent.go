package agent

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/tyler-smith/go-bip39"
	"go.uber.org/zap"

	"github.com/blackhole-pro/agentcore/internal/crypto"
	"github.com/blackhole-pro/agentcore/internal/did"
	"github.com/blackhole-pro/agentcore/internal/did/methods/dhtmethod"
	"github.com/blackhole-pro/agentcore/internal/dwn"
	"github.com/blackhole-pro/agentcore/internal/identitystore"
	"github.com/blackhole-pro/agentcore/internal/keymanager"
	"github.com/blackhole-pro/agentcore/internal/permissions"
	"github.com/blackhole-pro/agentcore/internal/vault"
)

// Agent binds the crypto registry, key manager, vault, DID subsystem,
// identity store, permissions API and DWN pipeline into the single
// surface an embedding host process talks to.
type Agent struct {
	log *zap.Logger

	tenant string

	registry      *crypto.Registry
	keyManager    *keymanager.Manager
	vault         *vault.Vault
	didRegistry   *did.Registry
	identityStore *identitystore.Store
	permissions   *permissions.Manager
	pipeline      *dwn.Pipeline

	deriver *vaultDeriver

	permissionsCacheTTL time.Duration

	mu          sync.RWMutex
	started     bool
	agentDid    string
	agentSigner *did.Signer
}

// dhtMethodForAgentDid is the fixed did:dht back-end the agent's own DID
// is always constructed against, regardless of which method back-ends a
// caller registers via WithDIDMethods for resolving other parties' DIDs.
// did:dht's method-specific-id is a deterministic encoding of the
// identity key, so this has no network dependency.
var dhtMethodForAgentDid = dhtmethod.New(nil)

// Option configures an Agent at construction time.
type Option func(*Agent)

// WithLogger installs a custom logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Agent) { a.log = log }
}

// WithTenant sets the tenant identifier identity/permissions records are
// scoped under. Defaults to the agent's own DID URI once known
// ("self-sovereign tenant") when left empty.
func WithTenant(tenant string) Option {
	return func(a *Agent) { a.tenant = tenant }
}

// WithDWN installs the external DWN the facade's pipeline dispatches to.
// Without one, processRequest calls with store!=false will fail when
// actually dispatched; synthesized 202s (store=false) still work.
func WithDWN(store dwn.DWN) Option {
	return func(a *Agent) {
		a.pipeline = dwn.NewPipeline(a.log, a, store, "")
		a.permissions.Close()
		a.permissions = permissions.NewManager(a.log, a.pipeline, a.permissionsCacheTTL)
	}
}

// WithIdentityStoreBackend installs a durable backend for the identity
// store instead of the pure in-memory default.
func WithIdentityStoreBackend(backend identitystore.Backend) Option {
	return func(a *Agent) { a.identityStore = identitystore.New(a.log, backend) }
}

// WithDIDMethods registers one or more DID method back-ends.
func WithDIDMethods(methods ...did.Method) Option {
	return func(a *Agent) {
		for _, m := range methods {
			a.didRegistry.Register(m)
		}
	}
}

// WithVaultWorkFactor overrides the vault's password KDF work factor.
func WithVaultWorkFactor(wf vault.WorkFactor) Option {
	return func(a *Agent) { a.vault = vault.New(a.log, vault.WithDIDDeriver(a.deriver), vault.WithWorkFactor(wf)) }
}

// WithPermissionsCacheTTL overrides the permissions grant cache TTL.
func WithPermissionsCacheTTL(ttl time.Duration) Option {
	return func(a *Agent) {
		a.permissionsCacheTTL = ttl
		a.permissions.Close()
		a.permissions = permissions.NewManager(a.log, a.pipeline, ttl)
	}
}

// WithDIDCacheTTL overrides the DID resolution cache TTL.
func WithDIDCacheTTL(ttl time.Duration) Option {
	return func(a *Agent) { a.didRegistry.SetCacheTTL(ttl) }
}

// New constructs an Agent with a not-yet-initialized vault.
func New(opts ...Option) *Agent {
	log := zap.NewNop()

	registry := crypto.NewRegistry()
	km := keymanager.New(log, registry)

	a := &Agent{
		log:           log,
		registry:      registry,
		keyManager:    km,
		didRegistry:   did.NewRegistry(log),
		identityStore: identitystore.New(log, nil),
	}
	a.deriver = &vaultDeriver{km: km}
	a.vault = vault.New(log, vault.WithDIDDeriver(a.deriver))
	a.pipeline = dwn.NewPipeline(log, a, noopDWN{}, "")
	a.permissions = permissions.NewManager(log, a.pipeline, 0)

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close releases background resources (the permissions cache sweep).
func (a *Agent) Close() {
	a.permissions.Close()
}

// FirstLaunch reports whether the vault has never been initialized.
func (a *Agent) FirstLaunch() bool {
	return !a.vault.GetStatus().Initialized
}

// Initialize seeds the vault — from recoveryPhrase if given, otherwise a
// freshly generated mnemonic — under passphrase, and returns the
// mnemonic (empty when recoveryPhrase was supplied).
func (a *Agent) Initialize(passphrase string, recoveryPhrase string) (mnemonic string, err error) {
	var seed []byte
	if recoveryPhrase != "" {
		if !bip39.IsMnemonicValid(recoveryPhrase) {
			return "", errInvalidRecoveryPhrase()
		}
		seed = bip39.NewSeed(recoveryPhrase, "")
	}
	return a.vault.Initialize(passphrase, seed)
}

// Start unlocks the vault under passphrase, derives the agent's DID and
// signer, and makes them available to every subordinate API.
func (a *Agent) Start(passphrase string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return errAlreadyStarted()
	}
	if err := a.vault.Unlock(passphrase); err != nil {
		return err
	}
	return a.loadIdentityLocked()
}

// Backup returns a versioned, re-encrypted copy of the vault's sealed
// state, suitable for out-of-band storage (e.g. a CLI writing it to
// disk between process invocations).
func (a *Agent) Backup() (vault.Backup, error) {
	return a.vault.Backup()
}

// RestoreFromBackup brings up a freshly constructed Agent (one that has
// never called Initialize in this process) from a previously persisted
// vault backup, deriving and loading its DID/signer exactly as Start
// does for an already-initialized in-process vault.
func (a *Agent) RestoreFromBackup(backup vault.Backup, passphrase string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return errAlreadyStarted()
	}
	if err := a.vault.Restore(backup, passphrase); err != nil {
		return err
	}
	return a.loadIdentityLocked()
}

// loadIdentityLocked re-derives the agent's DID/signer from the unlocked
// vault's seed and marks the agent started. Callers must hold a.mu.
func (a *Agent) loadIdentityLocked() error {
	seed, err := a.vault.Seed()
	if err != nil {
		return err
	}
	if _, err := a.deriver.DeriveDID(seed); err != nil {
		return err
	}

	bearer := a.deriver.bearer
	signer, err := did.GetSigner(a.keyManager, dhtMethodForAgentDid, &bearer.Document, "")
	if err != nil {
		return err
	}

	a.agentDid = bearer.URI
	a.agentSigner = signer
	if a.tenant == "" {
		a.tenant = bearer.URI
	}
	a.started = true
	a.log.Info("agent started", zap.String("agentDid", a.agentDid))
	return nil
}

// AgentDID returns the agent's own DID URI once Start has succeeded.
func (a *Agent) AgentDID() (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.started {
		return "", errNotStarted()
	}
	return a.agentDid, nil
}

// ResolveSigner implements dwn.SignerResolver: author == the agent's own
// DID short-circuits to the vault-derived signer; any other author is
// resolved through the DID subsystem.
func (a *Agent) ResolveSigner(author string) (dwn.Signer, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.started {
		return dwn.Signer{}, errNotStarted()
	}

	if author == a.agentDid {
		return dwn.Signer{KeyURI: a.agentSigner.KeyURI, KM: a.keyManager}, nil
	}

	result := a.didRegistry.Resolve(author)
	if result.DidDocument == nil {
		return dwn.Signer{}, errSignerUnavailable("could not resolve signer DID " + author)
	}
	parsed, err := did.Parse(author)
	if err != nil {
		return dwn.Signer{}, err
	}
	method, ok := a.didRegistry.Lookup(parsed.Method)
	if !ok {
		return dwn.Signer{}, errSignerUnavailable("no method registered for " + parsed.Method)
	}
	signer, err := did.GetSigner(a.keyManager, method, result.DidDocument, "")
	if err != nil {
		var kmErr *keymanager.Error
		if errors.As(err, &kmErr) && kmErr.Kind == keymanager.KindKeyNotFound {
			return dwn.Signer{}, &dwn.Error{Kind: dwn.KindKeyNotInKeyManager, Message: "resolved verification method has no matching private key in the key manager", Err: err}
		}
		return dwn.Signer{}, err
	}
	return dwn.Signer{KeyURI: signer.KeyURI, KM: a.keyManager}, nil
}

// ProcessDidRequest resolves didURI through the DID subsystem. Only
// resolution is implemented; other DID-request variants fail explicitly.
//
// Resolving the agent's own DID is short-circuited to the document
// already held in memory rather than dispatched through the registered
// method back-end: unlike did:jwk, a did:dht document isn't
// self-certifying from its identifier alone, so a generic resolve would
// otherwise require a configured DHT backend just to read back a
// document the agent derived itself.
func (a *Agent) ProcessDidRequest(operation string, didURI string) (did.ResolutionResult, error) {
	switch operation {
	case "resolve":
		a.mu.RLock()
		isSelf := a.started && didURI == a.agentDid
		doc := a.deriver.bearer.Document
		a.mu.RUnlock()
		if isSelf {
			return did.ResolutionResult{DidDocument: &doc}, nil
		}
		return a.didRegistry.Resolve(didURI), nil
	default:
		return did.ResolutionResult{}, errNotImplemented("processDidRequest(" + operation + ")")
	}
}

// ProcessDwnRequest runs req through the local pipeline.
func (a *Agent) ProcessDwnRequest(ctx context.Context, req dwn.Request) (dwn.Result, error) {
	a.mu.RLock()
	started := a.started
	a.mu.RUnlock()
	if !started {
		return dwn.Result{}, errNotStarted()
	}
	return a.pipeline.ProcessRequest(ctx, req)
}

// SendDwnRequest is the remote-dispatch variant; remote must be a
// *dwn.RemoteDWN-backed pipeline (construct one with WithDWN(remoteDWN)
// or build a second Pipeline directly and call its ProcessRequest).
func (a *Agent) SendDwnRequest(ctx context.Context, remote *dwn.Pipeline, req dwn.Request) (dwn.Result, error) {
	if remote == nil {
		return dwn.Result{}, errNotImplemented("sendDwnRequest without a configured remote pipeline")
	}
	return remote.ProcessRequest(ctx, req)
}

// Permissions exposes the permissions manager for grant/request/
// revocation CRUD and matching.
func (a *Agent) Permissions() *permissions.Manager { return a.permissions }

// IdentityStore exposes the per-tenant identity record CRUD surface.
func (a *Agent) IdentityStore() *identitystore.Store { return a.identityStore }

// KeyManager exposes the key manager for callers that need direct
// generate/import/export access.
func (a *Agent) KeyManager() *keymanager.Manager { return a.keyManager }

// DIDRegistry exposes the method registry/resolver.
func (a *Agent) DIDRegistry() *did.Registry { return a.didRegistry }

// Tenant returns the tenant identifier records are scoped under.
func (a *Agent) Tenant() string { return a.tenant }

// noopDWN is the zero-value DWN used until a real one is configured via
// WithDWN; it only ever serves requests with store=false, since
// ProcessMessage itself always errors.
type noopDWN struct{}

func (noopDWN) ProcessMessage(ctx context.Context, target string, msg dwn.Message, dataStream io.Reader) (dwn.Reply, error) {
	return dwn.Reply{}, errNotImplemented("dwn dispatch: no DWN configured (use agent.WithDWN)")
}
