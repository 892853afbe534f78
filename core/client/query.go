// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package client

import (
	"net/url"
	"strings"

	"github.com/relabs-tech/cirrus/core"
)

// Query collects filter expressions and an optional field selection for
// read operations. Queries are immutable; the With* methods return copies.
type Query struct {
	parameters []string
	fields     []string
}

// NewQuery returns an empty query.
func NewQuery() Query {
	return Query{}
}

// WithFilter returns a new query with a key=value filter added. Key and
// value are URL-escaped individually.
func (q Query) WithFilter(key, value string) Query {
	parameter := url.QueryEscape(key) + "=" + url.QueryEscape(value)

	return Query{
		fields: q.fields,
		// we want a true copy to avoid side effects
		parameters: append(append([]string{}, q.parameters...), parameter),
	}
}

// WithExpression returns a new query with a pre-built filter expression
// added. The expression is URL-escaped as a whole, without key=value
// structure.
func (q Query) WithExpression(expression string) Query {
	return Query{
		fields:     q.fields,
		parameters: append(append([]string{}, q.parameters...), url.QueryEscape(expression)),
	}
}

// WithFields returns a new query that selects only the given fields.
// The selection travels as a header, not as a query parameter.
func (q Query) WithFields(fields ...string) Query {
	return Query{
		parameters: q.parameters,
		fields:     append(append([]string{}, q.fields...), fields...),
	}
}

// Encode returns the query string without the leading question mark.
func (q Query) Encode() string {
	return strings.Join(q.parameters, "&")
}

func (q Query) headers() map[string]string {
	if len(q.fields) == 0 {
		return nil
	}
	return map[string]string{core.HeaderSelect: strings.Join(q.fields, ",")}
}
