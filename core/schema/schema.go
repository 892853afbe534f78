// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package schema fetches and caches the backend's API descriptor.

The descriptor maps type names to their property sets. The cache fills
lazily on first use and is single-flight: concurrent first callers share one
in-flight fetch. Its main job is to resolve the identity column of a type,
which the client needs when a relationship-creation response does not name
the created ids, and to resolve the username field for login.
*/
package schema

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/relabs-tech/cirrus/core"
	"github.com/relabs-tech/cirrus/core/async"
	"github.com/relabs-tech/cirrus/core/request"
	"github.com/relabs-tech/cirrus/core/transport"
)

// ListAPIEndpoint is the resource that serves the full API descriptor.
const ListAPIEndpoint = "listapi"

// Descriptor is the fetched API description. It is immutable for the
// lifetime of the owning client. The raw document is kept because property
// order is significant for identity-column resolution.
type Descriptor struct {
	raw []byte
}

// ParseDescriptor parses a fetched API descriptor document.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("schema descriptor is not a JSON object")
	}
	return &Descriptor{raw: data}, nil
}

// Raw returns the descriptor document as fetched.
func (d *Descriptor) Raw() []byte {
	return d.raw
}

// HasType returns true if the descriptor knows the given type.
func (d *Descriptor) HasType(typeName string) bool {
	return gjson.GetBytes(d.raw, escapePath(typeName)).Exists()
}

func (d *Descriptor) properties(typeName string) (gjson.Result, error) {
	props := gjson.GetBytes(d.raw, escapePath(typeName)+".properties")
	if !props.Exists() || !props.IsObject() {
		return gjson.Result{}, fmt.Errorf("type %s not found in schema", typeName)
	}
	return props, nil
}

// PrimaryKeyField returns the name of the first property of typeName that is
// flagged as identity column, scanning properties in their declared order.
//
// If relatedField is non-empty, the $ref of that field is followed first and
// the identity column of the referenced type is returned instead.
func (d *Descriptor) PrimaryKeyField(typeName, relatedField string) (string, error) {
	props, err := d.properties(typeName)
	if err != nil {
		return "", err
	}

	if relatedField != "" {
		ref := props.Get(escapePath(relatedField) + ".$ref")
		if !ref.Exists() {
			return "", fmt.Errorf("field %s of type %s has no $ref", relatedField, typeName)
		}
		if props, err = d.properties(ref.String()); err != nil {
			return "", err
		}
		typeName = ref.String()
	}

	var field string
	props.ForEach(func(key, value gjson.Result) bool {
		if value.Get("identity").Bool() {
			field = key.String()
			return false
		}
		return true
	})
	if field == "" {
		return "", fmt.Errorf("type %s has no identity column", typeName)
	}
	return field, nil
}

// escapePath escapes gjson path wildcards in a JSON key.
func escapePath(key string) string {
	replacer := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`)
	return replacer.Replace(key)
}

// Cache lazily fetches the API descriptor and keeps it for the lifetime of
// the owning client. There is no refresh or invalidation; a failed fetch is
// dropped so that a later call can try again.
type Cache struct {
	builder  *request.Builder
	executor *transport.Executor

	mu    sync.Mutex
	fetch *async.Future[*Descriptor]
}

// NewCache creates a schema cache on top of the given builder and executor.
func NewCache(builder *request.Builder, executor *transport.Executor) *Cache {
	return &Cache{builder: builder, executor: executor}
}

// Get returns the descriptor, fetching it on first use. Concurrent callers
// share one in-flight fetch.
func (c *Cache) Get(ctx context.Context) *async.Future[*Descriptor] {
	c.mu.Lock()
	if c.fetch != nil {
		f := c.fetch
		c.mu.Unlock()
		return f
	}

	desc, err := c.builder.Build(core.SubdomainAPI, core.OperationRead, http.MethodGet, ListAPIEndpoint, "", "", nil, request.AuthSigned)
	if err != nil {
		c.mu.Unlock()
		return async.Failed[*Descriptor](err)
	}
	f := async.Then(c.executor.Execute(ctx, desc, nil, transport.Options{}), ParseDescriptor)
	c.fetch = f
	c.mu.Unlock()

	f.OnFailure(func(error) {
		c.mu.Lock()
		if c.fetch == f {
			c.fetch = nil
		}
		c.mu.Unlock()
	})
	return f
}

// PrimaryKeyField resolves the identity column of typeName, or of the type
// referenced by relatedField when it is non-empty. The returned future
// resolves exactly once, from the cached descriptor when available.
func (c *Cache) PrimaryKeyField(ctx context.Context, typeName, relatedField string) *async.Future[string] {
	if err := core.CheckArgument("typeName", typeName); err != nil {
		return async.Failed[string](err)
	}
	return async.Then(c.Get(ctx), func(d *Descriptor) (string, error) {
		return d.PrimaryKeyField(typeName, relatedField)
	})
}
