package openapi

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-orderflow/pkg/schema"
)

const sampleDocument = `{
  "openapi": "3.0.3",
  "info": {"title": "orders", "version": "1.0.0"},
  "paths": {
    "/orders/submit": {
      "post": {
        "operationId": "submitCurrencyOrder",
        "requestBody": {
          "content": {
            "multipart/form-data": {
              "schema": {
                "type": "object",
                "required": ["sender_name", "transfer_date", "screenshot"],
                "properties": {
                  "product_id": {"type": "string"},
                  "amount": {"type": "string"},
                  "sender_name": {"type": "string", "title": "Sender's Name"},
                  "bank_name": {"type": "string", "title": "Bank Name"},
                  "transfer_date": {"type": "string", "format": "date-time", "title": "Date/Time of Transfer"},
                  "screenshot": {"type": "string", "format": "binary", "title": "Transaction Screenshot"}
                }
              }
            }
          }
        },
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

func TestFieldDefinitions(t *testing.T) {
	fields, err := FieldDefinitions(context.Background(), []byte(sampleDocument), "submitCurrencyOrder")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []schema.FieldDefinition{
		{Label: "Transaction Screenshot", Type: schema.FieldTypeFile, Required: true},
		{Label: "Sender's Name", Type: schema.FieldTypeText, Required: true},
		{Label: "Date/Time of Transfer", Type: schema.FieldTypeDate, Required: true},
		{Label: "Bank Name", Type: schema.FieldTypeText, Required: false},
	}
	// Required fields first, alphabetical by property name within each group:
	// screenshot, sender_name, transfer_date, then optional bank_name.
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldDefinitions_ReservedKeysExcluded(t *testing.T) {
	fields, err := FieldDefinitions(context.Background(), []byte(sampleDocument), "submitCurrencyOrder")
	if err != nil {
		t.Fatal(err)
	}
	for _, fd := range fields {
		if fd.Label == "product_id" || fd.Label == "amount" {
			t.Errorf("reserved key %q leaked into field definitions", fd.Label)
		}
	}
}

func TestFieldDefinitions_CompilesCleanly(t *testing.T) {
	fields, err := FieldDefinitions(context.Background(), []byte(sampleDocument), "submitCurrencyOrder")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := schema.Compile(fields); err != nil {
		t.Fatalf("derived fields failed to compile: %v", err)
	}
}

func TestFieldDefinitions_UnknownOperation(t *testing.T) {
	_, err := FieldDefinitions(context.Background(), []byte(sampleDocument), "nope")
	if err == nil {
		t.Fatal("expected error for unknown operation")
	}
}

func TestFieldDefinitions_EmptyDocument(t *testing.T) {
	_, err := FieldDefinitions(context.Background(), nil, "submitCurrencyOrder")
	if err == nil {
		t.Fatal("expected error for empty document")
	}
}
