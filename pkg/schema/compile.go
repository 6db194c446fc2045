package schema

import (
	"fmt"
	"strings"
)

// Rule is the closed set of validation behaviours a compiled field can carry.
type Rule int

const (
	// RuleRequiredString demands a non-empty string value.
	RuleRequiredString Rule = iota
	// RuleOptionalString accepts an absent value or any string.
	RuleOptionalString
	// RuleRequiredPresent demands any non-nil value (file handles).
	RuleRequiredPresent
	// RuleOptionalPresent accepts anything, including absence.
	RuleOptionalPresent
)

// String returns the rule name used in diagnostics.
func (r Rule) String() string {
	switch r {
	case RuleRequiredString:
		return "required-string"
	case RuleOptionalString:
		return "optional-string"
	case RuleRequiredPresent:
		return "required-present"
	case RuleOptionalPresent:
		return "optional-present"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// Validate checks a single value against the rule. The label is used to build
// the user-facing message. A nil error means the value passes.
func (r Rule) Validate(label string, value any, present bool) error {
	switch r {
	case RuleRequiredString:
		if !present {
			return &ValidationError{Label: label, Message: label + " is required"}
		}
		s, ok := value.(string)
		if !ok {
			return &ValidationError{Label: label, Message: label + " must be a string"}
		}
		if s == "" {
			return &ValidationError{Label: label, Message: label + " is required"}
		}
		return nil
	case RuleOptionalString:
		if !present || value == nil {
			return nil
		}
		if _, ok := value.(string); !ok {
			return &ValidationError{Label: label, Message: label + " must be a string"}
		}
		return nil
	case RuleRequiredPresent:
		if !present || value == nil {
			return &ValidationError{Label: label, Message: label + " is required"}
		}
		return nil
	case RuleOptionalPresent:
		return nil
	default:
		return &ValidationError{Label: label, Message: "unknown validation rule for " + label}
	}
}

func ruleFor(fd FieldDefinition) Rule {
	if fd.Type == FieldTypeFile {
		if fd.Required {
			return RuleRequiredPresent
		}
		return RuleOptionalPresent
	}
	if fd.Required {
		return RuleRequiredString
	}
	return RuleOptionalString
}

// Compiled is the immutable ruleset produced from one field definition list.
// It is the single validation path for both inline field errors and the
// gate that admits an order draft to preview.
type Compiled struct {
	fields []FieldDefinition
	rules  map[string]Rule
	labels map[string]string
}

// Compile turns backend-declared field definitions into a typed ruleset.
// Compilation is pure: the same input always yields an equal Compiled. Two
// labels that sanitize to the same identifier are a schema-authoring error
// and fail compilation rather than silently merging.
func Compile(fields []FieldDefinition) (*Compiled, error) {
	compiled := &Compiled{
		fields: append([]FieldDefinition(nil), fields...),
		rules:  make(map[string]Rule, len(fields)),
		labels: make(map[string]string, len(fields)),
	}
	for _, fd := range fields {
		label := strings.TrimSpace(fd.Label)
		if label == "" {
			return nil, &Error{Message: "field label is empty"}
		}
		switch fd.Type {
		case FieldTypeText, FieldTypeDate, FieldTypeTime, FieldTypeFile:
		default:
			return nil, &Error{Label: fd.Label, Message: fmt.Sprintf("unsupported field type %q", fd.Type)}
		}
		id := fd.ID()
		if prior, exists := compiled.labels[id]; exists {
			return nil, &Error{
				Label:   fd.Label,
				ID:      id,
				Message: fmt.Sprintf("label %q collides with %q after sanitizing", fd.Label, prior),
			}
		}
		compiled.labels[id] = fd.Label
		compiled.rules[id] = ruleFor(fd)
	}
	return compiled, nil
}

// Fields returns the field definitions in declaration order.
func (c *Compiled) Fields() []FieldDefinition {
	if c == nil {
		return nil
	}
	return append([]FieldDefinition(nil), c.fields...)
}

// Rule looks up the compiled rule for a sanitized field identifier.
func (c *Compiled) Rule(id string) (Rule, bool) {
	if c == nil {
		return 0, false
	}
	rule, ok := c.rules[id]
	return rule, ok
}

// Rules returns a copy of the identifier→rule mapping.
func (c *Compiled) Rules() map[string]Rule {
	if c == nil {
		return nil
	}
	out := make(map[string]Rule, len(c.rules))
	for id, rule := range c.rules {
		out[id] = rule
	}
	return out
}

// Label resolves the original wire label for a sanitized identifier.
func (c *Compiled) Label(id string) (string, bool) {
	if c == nil {
		return "", false
	}
	label, ok := c.labels[id]
	return label, ok
}

// Validate checks every field's value and returns per-identifier messages for
// the ones that fail. An empty map means the draft passes.
func (c *Compiled) Validate(values map[string]any) map[string]string {
	if c == nil {
		return nil
	}
	problems := make(map[string]string)
	for _, fd := range c.fields {
		id := fd.ID()
		value, present := values[id]
		if err := c.rules[id].Validate(fd.Label, value, present); err != nil {
			problems[id] = err.Error()
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// Valid reports whether every field passes validation.
func (c *Compiled) Valid(values map[string]any) bool {
	return len(c.Validate(values)) == 0
}
