// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package schema

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Validator is a utility to validate documents against the property types
// declared in the fetched API descriptor, before they are sent to the
// backend. Validation is opt-in; the backend remains the source of truth.
type Validator struct {
	schemaValidators map[string]*gojsonschema.Schema
}

// NewValidator compiles validators for the given types of the descriptor.
// Properties without a declared type are not constrained.
func NewValidator(d *Descriptor, typeNames ...string) (*Validator, error) {
	validator := &Validator{schemaValidators: make(map[string]*gojsonschema.Schema)}
	for _, typeName := range typeNames {
		props, err := d.properties(typeName)
		if err != nil {
			return nil, err
		}
		properties := map[string]interface{}{}
		props.ForEach(func(key, value gjson.Result) bool {
			if t := value.Get("type"); t.Exists() {
				properties[key.String()] = map[string]interface{}{"type": t.String()}
			}
			return true
		})
		doc := map[string]interface{}{
			"type":       "object",
			"properties": properties,
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s %s", typeName, err)
		}
		validator.schemaValidators[typeName] = schema
	}
	return validator, nil
}

// HasSchema returns true if typeName is known
func (v *Validator) HasSchema(typeName string) bool {
	_, ok := v.schemaValidators[typeName]
	return ok
}

// ValidateStruct validates the given json as a struct against typeName. If no error is returned,
// then the passed json is valid
func (v *Validator) ValidateStruct(json interface{}, typeName string) error {
	return v.validate(gojsonschema.NewGoLoader(json), typeName)
}

// ValidateString validates the given json against typeName. If no error is returned, then the
// passed json is valid
func (v *Validator) ValidateString(json, typeName string) error {
	return v.validate(gojsonschema.NewStringLoader(json), typeName)
}

// validate validates the given loader against typeName. If no error is returned, then the passed json
// is valid
func (v *Validator) validate(loader gojsonschema.JSONLoader, typeName string) error {

	schema, ok := v.schemaValidators[typeName]
	if !ok {
		return fmt.Errorf("there is no schema %s ", typeName)
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return fmt.Errorf("cannot validate with schema %s %s", typeName, err)
	}

	if !result.Valid() {
		err := "the document is not valid :\n"
		for _, e := range result.Errors() {
			err += fmt.Sprintf("- %s\n", e)
		}
		return errors.New(err)
	}
	return nil
}
