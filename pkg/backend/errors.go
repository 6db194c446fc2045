package backend

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const genericFailureMessage = "Something went wrong. Please try again"

var messagePolicy = bluemonday.StrictPolicy()

// APIError is a structured backend failure. Message is safe to show to the
// user: backend-supplied text is preferred over HTTP-status boilerplate and
// any markup is stripped before display.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Fields     map[string][]string
}

func (e *APIError) Error() string {
	return "backend: " + e.Message
}

// UserMessage returns the display text for the failure.
func (e *APIError) UserMessage() string {
	return e.Message
}

type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

// decodeError folds an HTTP error response into an APIError. The first
// structured field error wins, then the body's message, then a generic
// fallback; raw status text is never shown when the backend said something
// human-readable.
func decodeError(statusCode int, status string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Status:     status,
		Message:    genericFailureMessage,
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return apiErr
	}
	apiErr.Fields = parsed.Errors

	if msg := firstFieldError(parsed.Errors); msg != "" {
		apiErr.Message = SanitizeMessage(msg)
		return apiErr
	}
	if msg := strings.TrimSpace(parsed.Message); msg != "" {
		apiErr.Message = SanitizeMessage(msg)
		return apiErr
	}
	if msg := strings.TrimSpace(parsed.Error); msg != "" {
		apiErr.Message = SanitizeMessage(msg)
	}
	return apiErr
}

func firstFieldError(fields map[string][]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, msg := range fields[key] {
			if trimmed := strings.TrimSpace(msg); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// SanitizeMessage strips any markup from backend-supplied text before it is
// shown to the user.
func SanitizeMessage(raw string) string {
	return strings.TrimSpace(messagePolicy.Sanitize(raw))
}
