package core

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Operation represents a client operation against the backend, one of
// Create, CreateRelated, Read, Update, Append, Delete, DeleteFrom
type Operation string

// all supported client operations
const (
	OperationCreate        Operation = "create"
	OperationCreateRelated Operation = "create_related"
	OperationRead          Operation = "read"
	OperationUpdate        Operation = "update"
	OperationAppend        Operation = "append"
	OperationDelete        Operation = "delete"
	OperationDeleteFrom    Operation = "delete_from"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Operation(s)
	switch *o {
	case OperationCreate, OperationCreateRelated, OperationRead,
		OperationUpdate, OperationAppend, OperationDelete, OperationDeleteFrom:
		return nil
	default:
		return fmt.Errorf("%s is not valid Operation", s)
	}
}

// Subdomain selects the backend endpoint family a request addresses.
type Subdomain string

// the two endpoint families
const (
	SubdomainAPI  Subdomain = "api"
	SubdomainPush Subdomain = "push"
)

// custom headers understood by the backend
const (
	HeaderCascadeDelete = "X-Cirrus-CascadeDelete"
	HeaderSelect        = "X-Cirrus-Select"
)

// AcceptHeader returns the version-stamped media type the backend expects
// in the Accept header.
func AcceptHeader(version int) string {
	return fmt.Sprintf("application/vnd.cirrus+json; version=%d", version)
}

// CheckArgument verifies that a required string argument is neither empty
// nor blank. It returns a descriptive error before any request is built,
// blank arguments are a caller contract violation and never reach the
// network layer.
func CheckArgument(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("argument %s must not be blank", name)
	}
	return nil
}
