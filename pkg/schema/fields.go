package schema

import "regexp"

// FieldType enumerates the value kinds a backend may declare for a dynamic
// form field.
type FieldType string

const (
	FieldTypeText FieldType = "text"
	FieldTypeDate FieldType = "date"
	FieldTypeTime FieldType = "time"
	FieldTypeFile FieldType = "file"
)

// Scalar reports whether values of this type travel as plain strings.
func (ft FieldType) Scalar() bool {
	return ft != FieldTypeFile
}

// FieldDefinition describes one piece of data the backend requires for a
// product. The label doubles as the wire key; its sanitized form is the local
// field identifier.
type FieldDefinition struct {
	Label    string    `json:"label" yaml:"label"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required" yaml:"required"`
}

// ID returns the sanitized local identifier for the field.
func (fd FieldDefinition) ID() string {
	return FieldID(fd.Label)
}

var nonWord = regexp.MustCompile(`\W+`)

// FieldID derives the local identifier for a label by collapsing runs of
// non-word characters into underscores. Distinct labels may collide after
// sanitizing; Compile rejects such schemas.
func FieldID(label string) string {
	return nonWord.ReplaceAllString(label, "_")
}
