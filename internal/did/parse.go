package did

import "strings"

// ParsedDID is the decomposition of a did: URI, including an optional
// #fragment used by Dereference.
type ParsedDID struct {
	URI              string
	Method           string
	MethodSpecificID string
	Fragment         string
}

// Parse decomposes a did:<method>:<method-specific-id>[#fragment] URI.
// It returns a plain error rather than an invalidDid sentinel; callers
// resolving a DID translate that error into
// ResolutionResult.DidResolutionMetadata.Error themselves.
func Parse(didURI string) (ParsedDID, error) {
	uri := didURI
	fragment := ""
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		fragment = uri[i+1:]
		uri = uri[:i]
	}

	const prefix = "did:"
	if !strings.HasPrefix(uri, prefix) {
		return ParsedDID{}, errInvalidDid("missing did: prefix", nil)
	}
	rest := uri[len(prefix):]

	sep := strings.IndexByte(rest, ':')
	if sep <= 0 || sep == len(rest)-1 {
		return ParsedDID{}, errInvalidDid("malformed method/method-specific-id", nil)
	}
	method := rest[:sep]
	methodSpecificID := rest[sep+1:]
	if methodSpecificID == "" {
		return ParsedDID{}, errInvalidDid("empty method-specific-id", nil)
	}

	return ParsedDID{
		URI:              didURI,
		Method:           method,
		MethodSpecificID: methodSpecificID,
		Fragment:         fragment,
	}, nil
}
