// Package dwn implements the message envelope constructors and the
// request-processing pipeline: a single entry point that resolves a
// signer, builds a self-describing message, and either dispatches it to
// an external DWN or a remote RPC peer.
package dwn

import "fmt"

// Kind discriminates DWN pipeline error causes.
type Kind string

const (
	KindKeyNotInKeyManager Kind = "KEY_NOT_IN_KEY_MANAGER"
	KindInvalidMessage     Kind = "INVALID_MESSAGE"
	KindCidComputation     Kind = "CID_COMPUTATION_FAILED"
	KindTransport          Kind = "TRANSPORT"
	KindCancelled          Kind = "CANCELLED"
)

// Error is the typed error returned by operations in this package.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dwn: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("dwn: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func errKeyNotInKeyManager(keyURI string) error {
	return &Error{Kind: KindKeyNotInKeyManager, Message: "signing key " + keyURI + " not present in key manager"}
}

func errInvalidMessage(message string, cause error) error {
	return &Error{Kind: KindInvalidMessage, Message: message, Err: cause}
}

func errCidComputation(cause error) error {
	return &Error{Kind: KindCidComputation, Message: "failed to compute content identifier before stream consumption", Err: cause}
}

func errTransport(cause error) error {
	return &Error{Kind: KindTransport, Message: "remote DWN transport failed", Err: cause}
}

func errCancelled() error {
	return &Error{Kind: KindCancelled, Message: "request cancelled"}
}
