// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package client provides the public surface of the Cirrus SDK.

A Client performs CRUD and relationship operations on dynamically-typed
schemas. Every operation validates its arguments synchronously, then
dispatches asynchronously and resolves a future exactly once with the
deserialized response or a translated error.

Instead of a base URL, a client can also be bound directly to a mux router;
it then talks to the handlers through recorded pseudo-requests, which is
perfectly suited for unit tests.
*/
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/tidwall/gjson"

	"github.com/relabs-tech/cirrus/core"
	"github.com/relabs-tech/cirrus/core/async"
	"github.com/relabs-tech/cirrus/core/request"
	"github.com/relabs-tech/cirrus/core/schema"
	"github.com/relabs-tech/cirrus/core/transport"
)

// Config holds the credentials and endpoint configuration of a client.
//
// use CIRRUS_CONSUMER_KEY="..." CIRRUS_CONSUMER_SECRET="..." with NewFromEnv()
type Config struct {
	Host           string `env:"CIRRUS_HOST,default=cirrusapi.com" description:"the backend host"`
	ConsumerKey    string `env:"CIRRUS_CONSUMER_KEY,required" description:"the OAuth consumer key"`
	ConsumerSecret string `env:"CIRRUS_CONSUMER_SECRET,required" description:"the OAuth consumer secret"`
	APIVersion     int    `env:"CIRRUS_API_VERSION,default=0" description:"the API version for the accept header"`

	// base URL overrides, mostly for tests against a local server
	APIBaseURL  string `env:"CIRRUS_API_BASE_URL,default=" description:"overrides https://api.{host}"`
	PushBaseURL string `env:"CIRRUS_PUSH_BASE_URL,default=" description:"overrides https://push.{host}"`
}

// Document is a dynamically-typed record, the schema-less counterpart of
// the typed generic operations.
type Document map[string]interface{}

// Client provides access to the backend.
type Client struct {
	builder  *request.Builder
	executor *transport.Executor
	schemas  *schema.Cache
}

// New creates a client for the configured backend.
func New(config Config) *Client {
	builder := request.NewBuilder(config.Host, config.APIVersion)
	if config.APIBaseURL != "" {
		builder = builder.WithBaseURL(core.SubdomainAPI, config.APIBaseURL)
	}
	if config.PushBaseURL != "" {
		builder = builder.WithBaseURL(core.SubdomainPush, config.PushBaseURL)
	}
	executor := transport.New(config.ConsumerKey, config.ConsumerSecret)
	return &Client{
		builder:  builder,
		executor: executor,
		schemas:  schema.NewCache(builder, executor),
	}
}

// NewFromEnv creates a client configured from the environment.
func NewFromEnv() (*Client, error) {
	var config Config
	if err := envdecode.Decode(&config); err != nil {
		return nil, err
	}
	return New(config), nil
}

// NewWithRouter creates a client that makes pseudo-REST requests directly
// to the mux router, without any network or signing.
func NewWithRouter(router *mux.Router) *Client {
	builder := request.NewBuilder("", 0).
		WithBaseURL(core.SubdomainAPI, "").
		WithBaseURL(core.SubdomainPush, "")
	executor := transport.NewWithRouter(router)
	return &Client{
		builder:  builder,
		executor: executor,
		schemas:  schema.NewCache(builder, executor),
	}
}

// Schemas returns the client's schema cache.
func (c *Client) Schemas() *schema.Cache {
	return c.schemas
}

// Validator fetches the schema descriptor and compiles a validator for the
// given types, for opt-in pre-flight validation of documents.
func (c *Client) Validator(ctx context.Context, typeNames ...string) *async.Future[*schema.Validator] {
	return async.Then(c.schemas.Get(ctx), func(d *schema.Descriptor) (*schema.Validator, error) {
		return schema.NewValidator(d, typeNames...)
	})
}

// do builds and dispatches one request. Argument validation has already
// happened at this point.
func (c *Client) do(ctx context.Context, subdomain core.Subdomain, op core.Operation, method, resource, subPath, query string,
	headers map[string]string, auth request.AuthMode, body interface{}) *async.Future[[]byte] {

	desc, err := c.builder.Build(subdomain, op, method, resource, subPath, query, headers, auth)
	if err != nil {
		return async.Failed[[]byte](err)
	}
	var bodyFunc transport.BodyFunc
	if body != nil {
		bodyFunc = func(w io.Writer) error {
			return json.NewEncoder(w).Encode(body)
		}
	}
	return c.executor.Execute(ctx, desc, bodyFunc, transport.Options{})
}

func decodeDocument(data []byte) (Document, error) {
	doc := Document{}
	if len(data) == 0 {
		return doc, nil
	}
	err := json.Unmarshal(data, &doc)
	return doc, err
}

func decodeDocuments(data []byte) ([]Document, error) {
	var docs []Document
	if len(data) == 0 {
		return docs, nil
	}
	err := json.Unmarshal(data, &docs)
	return docs, err
}

func ack(f *async.Future[[]byte]) *async.Future[struct{}] {
	return async.Then(f, func([]byte) (struct{}, error) {
		return struct{}{}, nil
	})
}

// Create stores a new record of the given type.
//
// The operation corresponds to a POST request to the type's collection
// endpoint. The future resolves with the stored representation; the server
// is the source of truth for generated fields such as ids and timestamps.
func (c *Client) Create(ctx context.Context, typeName string, doc Document) (*async.Future[Document], error) {
	if err := core.CheckArgument("typeName", typeName); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document must not be nil")
	}
	f := c.do(ctx, core.SubdomainAPI, core.OperationCreate, http.MethodPost, typeName, "", "", nil, request.AuthSigned, doc)
	return async.Then(f, decodeDocument), nil
}

// Update replaces the record with the given id.
//
// The operation corresponds to a PUT request. The future resolves with the
// server's stored representation.
func (c *Client) Update(ctx context.Context, typeName, id string, doc Document) (*async.Future[Document], error) {
	if err := c.checkResource(typeName, id); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document must not be nil")
	}
	f := c.do(ctx, core.SubdomainAPI, core.OperationUpdate, http.MethodPut, typeName, id, "", nil, request.AuthSigned, doc)
	return async.Then(f, decodeDocument), nil
}

// List gets all records of the given type.
func (c *Client) List(ctx context.Context, typeName string) (*async.Future[[]Document], error) {
	if err := core.CheckArgument("typeName", typeName); err != nil {
		return nil, err
	}
	f := c.do(ctx, core.SubdomainAPI, core.OperationRead, http.MethodGet, typeName, "", "", nil, request.AuthSigned, nil)
	return async.Then(f, decodeDocuments), nil
}

// Get gets a single record by id.
func (c *Client) Get(ctx context.Context, typeName, id string) (*async.Future[Document], error) {
	if err := c.checkResource(typeName, id); err != nil {
		return nil, err
	}
	f := c.do(ctx, core.SubdomainAPI, core.OperationRead, http.MethodGet, typeName, id, "", nil, request.AuthSigned, nil)
	return async.Then(f, decodeDocument), nil
}

// Query gets the records of the given type matching the query's filters.
// A field selection, when present, is passed as a header.
func (c *Client) Query(ctx context.Context, typeName string, query Query) (*async.Future[[]Document], error) {
	if err := core.CheckArgument("typeName", typeName); err != nil {
		return nil, err
	}
	f := c.do(ctx, core.SubdomainAPI, core.OperationRead, http.MethodGet, typeName, "", query.Encode(), query.headers(), request.AuthSigned, nil)
	return async.Then(f, decodeDocuments), nil
}

// Delete deletes a single record by id.
func (c *Client) Delete(ctx context.Context, typeName, id string) (*async.Future[struct{}], error) {
	if err := c.checkResource(typeName, id); err != nil {
		return nil, err
	}
	return ack(c.do(ctx, core.SubdomainAPI, core.OperationDelete, http.MethodDelete, typeName, id, "", nil, request.AuthSigned, nil)), nil
}

// Append appends values to an array-typed field of the given record.
//
// The operation corresponds to a PUT request to {parentType}/{parentID}/{field}
// with the value list as body. See AppendValues for the primitive-typed
// convenience surface; both funnel into this generic core.
func (c *Client) Append(ctx context.Context, parentType, parentID, field string, values []interface{}) (*async.Future[Document], error) {
	if err := c.checkRelation(parentType, parentID, field); err != nil {
		return nil, err
	}
	if values == nil {
		return nil, fmt.Errorf("values must not be nil")
	}
	f := c.do(ctx, core.SubdomainAPI, core.OperationAppend, http.MethodPut, parentType, parentID+"/"+field, "", nil, request.AuthSigned, values)
	return async.Then(f, decodeDocument), nil
}

// DeleteFrom removes the given ids from an array-typed field of the record.
//
// The ids are concatenated into the path with no separator, which is what
// the backend expects. With cascade set, the cascade-delete header instructs
// the server to also delete the referenced child records.
func (c *Client) DeleteFrom(ctx context.Context, parentType, parentID, field string, ids []string, cascade bool) (*async.Future[struct{}], error) {
	if err := c.checkRelation(parentType, parentID, field); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("ids must not be empty")
	}
	for _, id := range ids {
		if err := core.CheckArgument("id", id); err != nil {
			return nil, err
		}
	}
	var headers map[string]string
	if cascade {
		headers = map[string]string{core.HeaderCascadeDelete: "true"}
	}
	subPath := parentID + "/" + field + "/" + strings.Join(ids, "")
	return ack(c.do(ctx, core.SubdomainAPI, core.OperationDeleteFrom, http.MethodDelete, parentType, subPath, "", headers, request.AuthSigned, nil)), nil
}

// CreateRelated stores new child records under a relationship field of the
// given parent record.
//
// The backend either responds with a "succeeded" list of created ids, or,
// on older backends, with the created record itself. In the latter case the
// ids are recovered by resolving the related type's identity column through
// the schema cache and extracting that field from the response.
func (c *Client) CreateRelated(ctx context.Context, parentType, parentID, field string, items []Document) (*async.Future[[]string], error) {
	if err := c.checkRelation(parentType, parentID, field); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("items must not be empty")
	}

	out := async.NewFuture[[]string]()
	f := c.do(ctx, core.SubdomainAPI, core.OperationCreateRelated, http.MethodPost, parentType, parentID+"/"+field, "", nil, request.AuthSigned, items)
	f.OnComplete(func(r async.Result[[]byte]) {
		if r.Err != nil {
			out.Fail(r.Err)
			return
		}
		if succeeded := gjson.GetBytes(r.Value, "succeeded"); succeeded.IsArray() {
			out.Complete(resultStrings(succeeded))
			return
		}
		// legacy response shape: the created records themselves
		c.schemas.PrimaryKeyField(ctx, parentType, field).OnComplete(func(pk async.Result[string]) {
			if pk.Err != nil {
				out.Fail(pk.Err)
				return
			}
			parsed := gjson.ParseBytes(r.Value)
			var ids []string
			if parsed.IsArray() {
				for _, item := range parsed.Array() {
					ids = append(ids, item.Get(pk.Value).String())
				}
			} else {
				ids = []string{parsed.Get(pk.Value).String()}
			}
			out.Complete(ids)
		})
	})
	return out, nil
}

func resultStrings(r gjson.Result) []string {
	var values []string
	for _, v := range r.Array() {
		values = append(values, v.String())
	}
	return values
}

func (c *Client) checkResource(typeName, id string) error {
	if err := core.CheckArgument("typeName", typeName); err != nil {
		return err
	}
	return core.CheckArgument("id", id)
}

func (c *Client) checkRelation(parentType, parentID, field string) error {
	if err := core.CheckArgument("parentType", parentType); err != nil {
		return err
	}
	if err := core.CheckArgument("parentID", parentID); err != nil {
		return err
	}
	return core.CheckArgument("field", field)
}
