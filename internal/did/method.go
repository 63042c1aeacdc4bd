package did

import "github.com/blackhole-pro/agentcore/internal/keymanager"

// CreateOptions carries method-specific creation parameters (e.g. which
// algorithm to generate, or a service endpoint for did:web).
type CreateOptions struct {
	Algorithm string
	Extra     map[string]string
}

// Method is the interface every DID method back-end implements and
// registers into a Registry under its method name ("jwk", "key", "web",
// "dht").
type Method interface {
	// Name returns the method string this back-end answers to ("jwk").
	Name() string
	// Create generates key material via km and returns a fully-formed
	// BearerDid for this method.
	Create(km *keymanager.Manager, opts CreateOptions) (BearerDid, error)
	// Resolve dispatches resolution of a parsed did:<method>:... URI.
	Resolve(parsed ParsedDID) ResolutionResult
	// GetSigningMethod picks the default verification method used for
	// signing when a caller doesn't specify a keyUri.
	GetSigningMethod(doc *Document) (*VerificationMethod, error)
}
