package schema

// Error reports a malformed or colliding field definition list. It is fatal
// to compiling the form and should surface as a page-level failure rather
// than an inline field error.
type Error struct {
	Label   string
	ID      string
	Message string
}

func (e *Error) Error() string {
	return "schema: " + e.Message
}

// ValidationError reports a single field value that fails its compiled rule.
// It is recoverable and scoped to one field.
type ValidationError struct {
	Label   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
