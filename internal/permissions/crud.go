package permissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blackhole-pro/agentcore/internal/dwn"
)

// Manager is the permissions API: grant/request/revocation CRUD, the
// matching algorithm and its TTL cache, bound to a dwn.Pipeline for
// signed record construction.
type Manager struct {
	log      *zap.Logger
	pipeline *dwn.Pipeline
	cache    *GrantCache
}

// NewManager constructs a Manager. cacheTTL <= 0 uses defaultCacheTTL.
func NewManager(log *zap.Logger, pipeline *dwn.Pipeline, cacheTTL time.Duration) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:      log.With(zap.String("component", "permissions")),
		pipeline: pipeline,
		cache:    NewGrantCache(cacheTTL),
	}
}

// Close stops the Manager's background cache sweep.
func (m *Manager) Close() { m.cache.Close() }

func tagsForScope(scope Scope) map[string]string {
	if scope.Protocol == "" {
		return nil
	}
	return map[string]string{"protocol": scope.Protocol}
}

// CreateGrant produces a signed RecordsWrite envelope under protocolPath
// "grant", authored by grantor and addressed to grantee.
func (m *Manager) CreateGrant(ctx context.Context, grantor string, grant Grant) (dwn.Result, error) {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	payload := map[string]interface{}{
		"scope": scopePayload(grant.Scope),
	}
	if grant.Delegated {
		payload["delegated"] = true
	}
	if !grant.DateExpires.IsZero() {
		payload["dateExpires"] = grant.DateExpires.Format(time.RFC3339)
	}
	if grant.RequestID != "" {
		payload["requestId"] = grant.RequestID
	}
	if grant.Description != "" {
		payload["description"] = grant.Description
	}

	return m.pipeline.ProcessRequest(ctx, dwn.Request{
		Author:      grantor,
		Target:      grant.Grantee,
		MessageType: dwn.RecordsWrite,
		MessageParams: dwn.MessageParams{
			Protocol:     PermissionsProtocolURI,
			ProtocolPath: ProtocolPathGrant,
			ContextID:    grant.ID,
			Tags:         tagsForScope(grant.Scope),
			Payload:      payload,
		},
	})
}

// CreateRequest produces a signed RecordsWrite envelope under
// protocolPath "request".
func (m *Manager) CreateRequest(ctx context.Context, requestor string, req Request) (dwn.Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return m.pipeline.ProcessRequest(ctx, dwn.Request{
		Author:      requestor,
		Target:      req.Grantor,
		MessageType: dwn.RecordsWrite,
		MessageParams: dwn.MessageParams{
			Protocol:     PermissionsProtocolURI,
			ProtocolPath: ProtocolPathRequest,
			ContextID:    req.ID,
			Tags:         tagsForScope(req.Scope),
			Payload:      map[string]interface{}{"scope": scopePayload(req.Scope)},
		},
	})
}

// CreateRevocation produces a signed RecordsWrite envelope under
// protocolPath "revocation", parented to the grant it revokes.
func (m *Manager) CreateRevocation(ctx context.Context, revoker string, rev Revocation) (dwn.Result, error) {
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	return m.pipeline.ProcessRequest(ctx, dwn.Request{
		Author:      revoker,
		Target:      rev.Grantee,
		MessageType: dwn.RecordsWrite,
		MessageParams: dwn.MessageParams{
			Protocol:     PermissionsProtocolURI,
			ProtocolPath: ProtocolPathRevocation,
			ParentID:     rev.ParentContextID,
			ContextID:    rev.ID,
		},
	})
}

func scopePayload(scope Scope) map[string]interface{} {
	p := map[string]interface{}{
		"interface": scope.Interface,
		"method":    scope.Method,
	}
	if scope.Protocol != "" {
		p["protocol"] = scope.Protocol
	}
	if scope.ProtocolPath != "" {
		p["protocolPath"] = scope.ProtocolPath
	}
	if scope.ContextID != "" {
		p["contextId"] = scope.ContextID
	}
	return p
}

// IsGrantRevoked issues a read targeting {parentId: grant.id,
// protocol:permissionsProto, protocolPath:"revocation"}: status 200
// means revoked, 404 means not revoked, any other status is a fatal
// PermissionsLookupFailed.
func (m *Manager) IsGrantRevoked(ctx context.Context, requester string, grant Grant) (bool, error) {
	result, err := m.pipeline.ProcessRequest(ctx, dwn.Request{
		Author:      requester,
		Target:      grant.Grantee,
		MessageType: dwn.RecordsRead,
		MessageParams: dwn.MessageParams{
			Protocol:     PermissionsProtocolURI,
			ProtocolPath: ProtocolPathRevocation,
			ParentID:     grant.ID,
		},
	})
	if err != nil {
		return false, errPermissionsLookupFailed("revocation read failed", err)
	}

	switch result.Reply.Status.Code {
	case 200:
		return true, nil
	case 404:
		return false, nil
	default:
		return false, errPermissionsLookupFailed("unexpected status from revocation read", nil)
	}
}

// GetPermissionForRequest resolves the grant satisfying lookup from
// grants (the candidate set, typically from a prior Records query),
// consulting the TTL cache first when cached=true. A successful match is
// written back to the cache; misses are never negatively cached. An
// expired match fails with GrantExpired even though it otherwise matched.
func (m *Manager) GetPermissionForRequest(grants []Grant, lookup RequestLookup, cached bool, now time.Time) (Grant, error) {
	if cached {
		if g, ok := m.cache.Get(lookup.Grantor, lookup.Grantee, lookup.MessageType, lookup.Protocol); ok {
			if g.IsExpired(now) {
				return Grant{}, errGrantExpired(g.ID)
			}
			return g, nil
		}
	}

	g, err := MatchGrant(grants, lookup)
	if err != nil {
		return Grant{}, err
	}
	if g.IsExpired(now) {
		return Grant{}, errGrantExpired(g.ID)
	}

	m.cache.Put(lookup.Grantor, lookup.Grantee, lookup.MessageType, lookup.Protocol, g)
	return g, nil
}

// ClearCache drops every cached grant entry.
func (m *Manager) ClearCache() { m.cache.Clear() }
