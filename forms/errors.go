package forms

import (
	"sort"
	"strings"
)

// Errors maps field names to messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Empty() bool { return len(e) == 0 }

// ValidationError is returned when input fails validation. Nothing is written.
type ValidationError struct {
	Errors Errors
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e.Errors[f], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a ValidationError with a single message.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Errors: Errors{field: {msg}}}
}
