// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/cirrus/core"
	"github.com/relabs-tech/cirrus/core/async"
	"github.com/relabs-tech/cirrus/core/request"
)

// The typed operations below are the strongly-typed counterpart of the
// Document surface. They share validation, request construction and
// dispatch with their dynamic siblings.

func decodeAs[T any](data []byte) (T, error) {
	var value T
	if len(data) == 0 {
		return value, nil
	}
	err := json.Unmarshal(data, &value)
	return value, err
}

// CreateAs stores a new record of the given type and resolves with the
// stored representation, deserialized into T.
func CreateAs[T any](ctx context.Context, c *Client, typeName string, value T) (*async.Future[T], error) {
	if err := core.CheckArgument("typeName", typeName); err != nil {
		return nil, err
	}
	f := c.do(ctx, core.SubdomainAPI, core.OperationCreate, http.MethodPost, typeName, "", "", nil, request.AuthSigned, value)
	return async.Then(f, decodeAs[T]), nil
}

// UpdateAs replaces the record with the given id and resolves with the
// stored representation, deserialized into T.
func UpdateAs[T any](ctx context.Context, c *Client, typeName, id string, value T) (*async.Future[T], error) {
	if err := c.checkResource(typeName, id); err != nil {
		return nil, err
	}
	f := c.do(ctx, core.SubdomainAPI, core.OperationUpdate, http.MethodPut, typeName, id, "", nil, request.AuthSigned, value)
	return async.Then(f, decodeAs[T]), nil
}

// GetAs gets a single record by id, deserialized into T.
func GetAs[T any](ctx context.Context, c *Client, typeName, id string) (*async.Future[T], error) {
	if err := c.checkResource(typeName, id); err != nil {
		return nil, err
	}
	f := c.do(ctx, core.SubdomainAPI, core.OperationRead, http.MethodGet, typeName, id, "", nil, request.AuthSigned, nil)
	return async.Then(f, decodeAs[T]), nil
}

// ListAs gets all records of the given type, deserialized into a slice of T.
func ListAs[T any](ctx context.Context, c *Client, typeName string) (*async.Future[[]T], error) {
	if err := core.CheckArgument("typeName", typeName); err != nil {
		return nil, err
	}
	f := c.do(ctx, core.SubdomainAPI, core.OperationRead, http.MethodGet, typeName, "", "", nil, request.AuthSigned, nil)
	return async.Then(f, decodeAs[[]T]), nil
}

// Primitive constrains the value types that can be appended to an
// array-typed field.
type Primitive interface {
	~string | ~int | ~int64 | ~float32 | ~float64 | ~bool
}

// AppendValues appends primitive values to an array-typed field. All
// primitive overloads funnel into the generic Append core.
func AppendValues[T Primitive](ctx context.Context, c *Client, parentType, parentID, field string, values []T) (*async.Future[Document], error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("values must not be empty")
	}
	list := make([]interface{}, 0, len(values))
	for _, v := range values {
		list = append(list, v)
	}
	return c.Append(ctx, parentType, parentID, field, list)
}
