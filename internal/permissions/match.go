package permissions

import "strings"

// MatchGrant returns the first grant in grants (iteration order preserved,
// ties broken by first match) satisfying every rule of the grant matching
// algorithm, or errNoMatchingGrant if none do.
func MatchGrant(grants []Grant, lookup RequestLookup) (Grant, error) {
	for _, g := range grants {
		if matchesOne(g, lookup) {
			return g, nil
		}
	}
	return Grant{}, errNoMatchingGrant()
}

func matchesOne(g Grant, lookup RequestLookup) bool {
	// Rule 1.
	if g.Grantee != lookup.Grantee || g.Grantor != lookup.Grantor {
		return false
	}
	// Rule 2.
	if lookup.Delegated && !g.Delegated {
		return false
	}
	// Rule 3.
	if g.Scope.MessageType() != lookup.MessageType {
		return false
	}

	if g.Scope.IsRecordsInterface() {
		return matchesRecordsScope(g.Scope, lookup)
	}
	return matchesMessagesOrProtocolsScope(g.Scope, lookup)
}

// matchesRecordsScope implements rule 4. protocolPath and contextId
// scoping are mutually exclusive on the grant side, so at most one of the
// two narrower branches below ever applies to a given grant.
func matchesRecordsScope(scope Scope, lookup RequestLookup) bool {
	if scope.Protocol != lookup.Protocol {
		return false
	}

	unrestricted := scope.ContextID == "" && scope.ProtocolPath == ""
	if unrestricted {
		return true
	}

	if scope.ProtocolPath != "" {
		return scope.ProtocolPath == lookup.ProtocolPath
	}

	// scope.ContextID != ""
	return strings.HasPrefix(lookup.ContextID, scope.ContextID)
}

// matchesMessagesOrProtocolsScope implements rule 5.
func matchesMessagesOrProtocolsScope(scope Scope, lookup RequestLookup) bool {
	if scope.Protocol == "" {
		return true
	}
	return scope.Protocol == lookup.Protocol
}
