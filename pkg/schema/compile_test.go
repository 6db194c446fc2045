package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleFields() []FieldDefinition {
	return []FieldDefinition{
		{Label: "Sender's Name", Type: FieldTypeText, Required: true},
		{Label: "Bank Name", Type: FieldTypeText, Required: false},
		{Label: "Date/Time of Transfer", Type: FieldTypeDate, Required: true},
		{Label: "Transaction Screenshot", Type: FieldTypeFile, Required: true},
	}
}

func TestFieldID(t *testing.T) {
	cases := []struct {
		label  string
		expect string
	}{
		{"Sender's Name", "Sender_s_Name"},
		{"Bank Name", "Bank_Name"},
		{"Date/Time of Transfer", "Date_Time_of_Transfer"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := FieldID(tc.label); got != tc.expect {
			t.Errorf("FieldID(%q) = %q, want %q", tc.label, got, tc.expect)
		}
	}
}

func TestCompile_Rules(t *testing.T) {
	compiled, err := Compile(sampleFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]Rule{
		"Sender_s_Name":          RuleRequiredString,
		"Bank_Name":              RuleOptionalString,
		"Date_Time_of_Transfer":  RuleRequiredString,
		"Transaction_Screenshot": RuleRequiredPresent,
	}
	if diff := cmp.Diff(want, compiled.Rules()); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_Idempotent(t *testing.T) {
	first, err := Compile(sampleFields())
	if err != nil {
		t.Fatalf("first compile: %v", err)
	}
	second, err := Compile(sampleFields())
	if err != nil {
		t.Fatalf("second compile: %v", err)
	}
	if diff := cmp.Diff(first.Rules(), second.Rules()); diff != "" {
		t.Fatalf("compiles diverge (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Fields(), second.Fields()); diff != "" {
		t.Fatalf("fields diverge (-first +second):\n%s", diff)
	}
}

func TestCompile_RejectsCollidingLabels(t *testing.T) {
	_, err := Compile([]FieldDefinition{
		{Label: "Account #", Type: FieldTypeText, Required: true},
		{Label: "Account!#", Type: FieldTypeText, Required: false},
	})
	if err == nil {
		t.Fatal("expected collision error, got nil")
	}
	var schemaErr *Error
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if schemaErr.ID != "Account_" {
		t.Errorf("collision id = %q, want %q", schemaErr.ID, "Account_")
	}
}

func TestCompile_RejectsUnknownType(t *testing.T) {
	_, err := Compile([]FieldDefinition{{Label: "Amount", Type: "number", Required: true}})
	var schemaErr *Error
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
}

func TestCompile_RejectsEmptyLabel(t *testing.T) {
	_, err := Compile([]FieldDefinition{{Label: "   ", Type: FieldTypeText}})
	if err == nil {
		t.Fatal("expected error for empty label")
	}
}

func TestValidate(t *testing.T) {
	compiled, err := Compile(sampleFields())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	cases := []struct {
		name   string
		values map[string]any
		bad    []string
	}{
		{
			name: "all present",
			values: map[string]any{
				"Sender_s_Name":          "Ada",
				"Date_Time_of_Transfer":  "2026-03-01T10:00:00Z",
				"Transaction_Screenshot": "file:///tmp/shot.png",
			},
		},
		{
			name: "missing required string",
			values: map[string]any{
				"Date_Time_of_Transfer":  "2026-03-01T10:00:00Z",
				"Transaction_Screenshot": "file:///tmp/shot.png",
			},
			bad: []string{"Sender_s_Name"},
		},
		{
			name: "empty required string",
			values: map[string]any{
				"Sender_s_Name":          "",
				"Date_Time_of_Transfer":  "2026-03-01T10:00:00Z",
				"Transaction_Screenshot": "file:///tmp/shot.png",
			},
			bad: []string{"Sender_s_Name"},
		},
		{
			name: "nil required file",
			values: map[string]any{
				"Sender_s_Name":          "Ada",
				"Date_Time_of_Transfer":  "2026-03-01T10:00:00Z",
				"Transaction_Screenshot": nil,
			},
			bad: []string{"Transaction_Screenshot"},
		},
		{
			name: "optional string absent",
			values: map[string]any{
				"Sender_s_Name":          "Ada",
				"Date_Time_of_Transfer":  "2026-03-01T10:00:00Z",
				"Transaction_Screenshot": "file:///tmp/shot.png",
				"Bank_Name":              "",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			problems := compiled.Validate(tc.values)
			if len(problems) != len(tc.bad) {
				t.Fatalf("got %d problems %v, want %d", len(problems), problems, len(tc.bad))
			}
			for _, id := range tc.bad {
				if _, ok := problems[id]; !ok {
					t.Errorf("expected problem for %q, got %v", id, problems)
				}
			}
			if compiled.Valid(tc.values) != (len(tc.bad) == 0) {
				t.Errorf("Valid disagrees with Validate")
			}
		})
	}
}

func TestValidate_SingleSourceOfTruth(t *testing.T) {
	// The preview gate must agree with per-field validation: any value set
	// that Validate flags must also fail Valid, and vice versa.
	compiled, err := Compile(sampleFields())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	values := map[string]any{"Sender_s_Name": "Ada"}
	problems := compiled.Validate(values)
	if compiled.Valid(values) {
		t.Fatal("Valid returned true while Validate reported problems")
	}
	if len(problems) == 0 {
		t.Fatal("expected problems for incomplete values")
	}
}
