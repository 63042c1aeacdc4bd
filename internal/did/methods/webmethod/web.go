// Package webmethod implements did:web: the method-specific-id is a
// domain (optionally with a colon-separated path), dereferenced by
// fetching https://<domain>/[<path>/]did.json or
// https://<domain>/.well-known/did.json.
package webmethod

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blackhole-pro/agentcore/internal/did"
	"github.com/blackhole-pro/agentcore/internal/keymanager"
)

const methodName = "web"

// Method is the did:web back-end. Create is unsupported: a did:web
// identity is provisioned by publishing a document at a well-known URL,
// not by generating one locally.
type Method struct {
	client *http.Client
}

// New constructs a did:web back-end using httpClient for resolution, or a
// default client with a bounded timeout when nil.
func New(httpClient *http.Client) *Method {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Method{client: httpClient}
}

func (*Method) Name() string { return methodName }

func (*Method) Create(km *keymanager.Manager, opts did.CreateOptions) (did.BearerDid, error) {
	return did.BearerDid{}, fmt.Errorf("did:web does not support local creation; publish a document and resolve it instead")
}

func (m *Method) Resolve(parsed did.ParsedDID) did.ResolutionResult {
	docURL, err := documentURL(parsed.MethodSpecificID)
	if err != nil {
		return did.ResolutionResult{DidResolutionMetadata: did.ResolutionMetadata{Error: "invalidDid"}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return did.ResolutionResult{DidResolutionMetadata: did.ResolutionMetadata{Error: "invalidDid"}}
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return did.ResolutionResult{DidResolutionMetadata: did.ResolutionMetadata{Error: "notFound"}}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return did.ResolutionResult{DidResolutionMetadata: did.ResolutionMetadata{Error: "notFound"}}
	}

	var doc did.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return did.ResolutionResult{DidResolutionMetadata: did.ResolutionMetadata{Error: "invalidDid"}}
	}
	return did.ResolutionResult{DidDocument: &doc}
}

func (*Method) GetSigningMethod(doc *did.Document) (*did.VerificationMethod, error) {
	return did.DefaultSigningMethod(doc)
}

// documentURL translates a did:web method-specific-id into the https URL
// hosting its document, per the did:web spec's domain/path -> URL mapping
// (colons separate path segments, %3A-escapes a non-default port).
func documentURL(methodSpecificID string) (string, error) {
	if methodSpecificID == "" {
		return "", fmt.Errorf("empty did:web method-specific-id")
	}
	parts := strings.Split(methodSpecificID, ":")
	for i, p := range parts {
		decoded, err := url.PathUnescape(p)
		if err != nil {
			return "", err
		}
		parts[i] = decoded
	}

	host := parts[0]
	if len(parts) == 1 {
		return fmt.Sprintf("https://%s/.well-known/did.json", host), nil
	}
	return fmt.Sprintf("https://%s/%s/did.json", host, strings.Join(parts[1:], "/")), nil
}
