// Package openapi derives dynamic form field definitions from an OpenAPI
// document. Backends that publish their order operations as OpenAPI can feed
// the request body schema straight into the schema compiler instead of
// serving a bespoke field list.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-orderflow/pkg/schema"
)

// reservedKeys are payload entries the encoder always writes itself; they are
// never dynamic fields even when an OpenAPI schema declares them.
var reservedKeys = map[string]struct{}{
	"product_id": {},
	"amount":     {},
}

// FieldDefinitions extracts the dynamic form fields for one operation's
// request body. Property order follows the schema's required list first and
// alphabetical order within each group, keeping derived schemas stable across
// runs.
func FieldDefinitions(ctx context.Context, raw []byte, operationID string) ([]schema.FieldDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	if strings.TrimSpace(operationID) == "" {
		return nil, errors.New("openapi: operation id is required")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}

	operation := findOperation(doc, operationID)
	if operation == nil {
		return nil, fmt.Errorf("openapi: operation %q not found", operationID)
	}

	body := requestBodySchema(operation)
	if body == nil {
		return nil, fmt.Errorf("openapi: operation %q has no request body schema", operationID)
	}

	return fieldsFromSchema(body)
}

func findOperation(doc *openapi3.T, operationID string) *openapi3.Operation {
	if doc.Paths == nil {
		return nil
	}
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, operation := range item.Operations() {
			if operation != nil && operation.OperationID == operationID {
				return operation
			}
		}
	}
	return nil
}

func requestBodySchema(operation *openapi3.Operation) *openapi3.Schema {
	if operation.RequestBody == nil || operation.RequestBody.Value == nil {
		return nil
	}
	content := operation.RequestBody.Value.Content
	for _, mediaType := range []string{"multipart/form-data", "application/json", "application/x-www-form-urlencoded"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func fieldsFromSchema(body *openapi3.Schema) ([]schema.FieldDefinition, error) {
	if body.Type != nil && !body.Type.Is("object") {
		return nil, fmt.Errorf("openapi: request body must be an object schema, got %s", strings.Join(body.Type.Slice(), ","))
	}

	required := make(map[string]bool, len(body.Required))
	for _, name := range body.Required {
		required[name] = true
	}

	names := make([]string, 0, len(body.Properties))
	for name := range body.Properties {
		if _, reserved := reservedKeys[name]; reserved {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if required[names[i]] != required[names[j]] {
			return required[names[i]]
		}
		return names[i] < names[j]
	})

	fields := make([]schema.FieldDefinition, 0, len(names))
	for _, name := range names {
		ref := body.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		fieldType, err := fieldTypeFor(name, ref.Value)
		if err != nil {
			return nil, err
		}
		fields = append(fields, schema.FieldDefinition{
			Label:    labelFor(name, ref.Value),
			Type:     fieldType,
			Required: required[name],
		})
	}
	if len(fields) == 0 {
		return nil, errors.New("openapi: request body declares no usable properties")
	}
	return fields, nil
}

// fieldTypeFor maps string formats onto the pipeline's field types: date and
// date-time become date fields, time becomes a time field, and binary or
// byte content becomes a file upload.
func fieldTypeFor(name string, property *openapi3.Schema) (schema.FieldType, error) {
	if property.Type != nil && !property.Type.Is("string") {
		return "", fmt.Errorf("openapi: property %q must be a string type, got %s", name, strings.Join(property.Type.Slice(), ","))
	}
	switch property.Format {
	case "date", "date-time":
		return schema.FieldTypeDate, nil
	case "time":
		return schema.FieldTypeTime, nil
	case "binary", "byte":
		return schema.FieldTypeFile, nil
	default:
		return schema.FieldTypeText, nil
	}
}

func labelFor(name string, property *openapi3.Schema) string {
	if title := strings.TrimSpace(property.Title); title != "" {
		return title
	}
	return name
}
