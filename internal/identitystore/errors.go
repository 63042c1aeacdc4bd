// Package identitystore implements the per-tenant (id -> PortableDid) CRUD
// surface: an in-memory default with a pluggable persistent backend
// behind the same interface.
package identitystore

import "fmt"

// Kind discriminates identity store error causes.
type Kind string

const (
	KindNotFound      Kind = "NOT_FOUND"
	KindDuplicateID   Kind = "DUPLICATE_ID"
	KindBackendFailed Kind = "BACKEND_FAILED"
)

// Error is the typed error returned by every operation in this package.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identitystore: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("identitystore: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func errNotFound(tenant, id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("no identity record %q for tenant %q", id, tenant)}
}

func errDuplicateID(tenant, id string) error {
	return &Error{Kind: KindDuplicateID, Message: fmt.Sprintf("identity record %q already exists for tenant %q", id, tenant)}
}

func errBackendFailed(message string, cause error) error {
	return &Error{Kind: KindBackendFailed, Message: message, Err: cause}
}
