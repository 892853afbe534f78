// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package request constructs fully-specified request descriptors.

The builder performs no I/O. It composes the backend URL from subdomain, host,
resource and optional sub-path, stamps the versioned Accept header and tags the
descriptor with the authentication mode the transport has to apply: data and
schema operations are signed with the OAuth consumer credentials, session
operations carry the session cookie instead and omit the signature.
*/
package request

import (
	"fmt"
	"net/http"

	"github.com/relabs-tech/cirrus/core"
)

// AuthMode selects how the transport authenticates a request.
type AuthMode int

const (
	// AuthSigned requests carry an OAuth1 consumer signature in the
	// Authorization header. This is the mode for all data and schema
	// operations.
	AuthSigned AuthMode = iota
	// AuthSession requests carry the session cookie and no signature.
	// This is the mode for all operations of a logged-in user.
	AuthSession
)

// Descriptor is a fully specified request. It is built fresh per operation
// and never mutated after dispatch.
type Descriptor struct {
	Subdomain core.Subdomain
	Operation core.Operation
	Method    string
	URL       string
	Header    http.Header
	Auth      AuthMode
}

// Builder constructs request descriptors for one backend host and one
// API version. Builders are immutable and safe for concurrent use.
type Builder struct {
	host     string
	version  int
	baseURLs map[core.Subdomain]string
}

// NewBuilder creates a builder for the given backend host, e.g. "cirrusapi.com".
func NewBuilder(host string, version int) *Builder {
	return &Builder{
		host:     host,
		version:  version,
		baseURLs: map[core.Subdomain]string{},
	}
}

// WithBaseURL returns a new builder where requests for the given subdomain go
// to baseURL verbatim instead of the canonical https://{subdomain}.{host}.
// Unit tests use this to point the client at a local test server.
func (b *Builder) WithBaseURL(subdomain core.Subdomain, baseURL string) *Builder {
	// we want a true copy to avoid side effects
	baseURLs := map[core.Subdomain]string{subdomain: baseURL}
	for k, v := range b.baseURLs {
		if k != subdomain {
			baseURLs[k] = v
		}
	}
	return &Builder{
		host:     b.host,
		version:  b.version,
		baseURLs: baseURLs,
	}
}

// BaseURL returns the base URL used for the given subdomain.
func (b *Builder) BaseURL(subdomain core.Subdomain) string {
	if baseURL, ok := b.baseURLs[subdomain]; ok {
		return baseURL
	}
	return fmt.Sprintf("https://%s.%s", subdomain, b.host)
}

// Build constructs a descriptor for the given resource.
//
// op is the backend operation the request performs; the transport carries it
// into its log fields. idOrSubPath addresses either a single resource ("42")
// or a sub-collection ("42/tags"); both are plain path concatenation. query
// is the already encoded query string without the leading question mark.
// extraHeaders are added on top of the Accept header.
func (b *Builder) Build(subdomain core.Subdomain, op core.Operation, method string, resource string,
	idOrSubPath string, query string, extraHeaders map[string]string, auth AuthMode) (*Descriptor, error) {

	if err := core.CheckArgument("resource", resource); err != nil {
		return nil, err
	}

	url := b.BaseURL(subdomain) + "/" + resource
	if idOrSubPath != "" {
		url += "/" + idOrSubPath
	}
	if query != "" {
		url += "?" + query
	}

	header := http.Header{}
	header.Set("Accept", core.AcceptHeader(b.version))
	for key, value := range extraHeaders {
		header.Set(key, value)
	}

	return &Descriptor{
		Subdomain: subdomain,
		Operation: op,
		Method:    method,
		URL:       url,
		Header:    header,
		Auth:      auth,
	}, nil
}
