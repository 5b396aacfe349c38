// Package forms declares per-entity field tables and validates loosely-typed
// input against them. Choice lists may be static or resolved from live store
// state at validation time, so a reference field always checks the current
// set of referenced names.
package forms

import "context"

// Kind selects coercion, validation and widget rendering for a field.
type Kind int

const (
	String Kind = iota
	Text
	Integer
	Float
	Boolean
	Choice
	MultiChoice
	StringList
	IngredientLines
	Scores
	Email
	URL
	Password
)

// ChoiceFunc returns the currently allowed values of a choice field.
type ChoiceFunc func(ctx context.Context) ([]string, error)

// Field is one entry of a schema's field table.
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Required bool
	// RequiredOnCreate fields may be left blank when editing.
	RequiredOnCreate bool

	MaxLength int
	Min       *float64
	Max       *float64

	// Choices is a static choice list; ChoicesFrom is consulted instead when set.
	Choices     []string
	ChoicesFrom ChoiceFunc
	// Ref names the referenced entity in "not found" errors, e.g. "unit".
	Ref string

	// ReadOnly fields are never taken from input.
	ReadOnly bool
	// WriteOnly fields are accepted but never rendered back.
	WriteOnly bool
	// Transient fields only exist on forms and are removed before persisting.
	Transient bool
	// Default is stored on create when the field is absent from input. A
	// full update that omits the field keeps the stored value.
	Default any

	Help string
}

// Bound returns a pointer for Min/Max.
func Bound(v float64) *float64 { return &v }

func (f Field) label() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

func (f Field) choiceBased() bool {
	switch f.Kind {
	case Choice, MultiChoice, IngredientLines, Scores:
		return len(f.Choices) > 0 || f.ChoicesFrom != nil
	}
	return false
}

// Widget is the admin input type for the field.
func (f Field) Widget() string {
	switch f.Kind {
	case Text, StringList, IngredientLines, Scores:
		return "textarea"
	case Integer, Float:
		return "number"
	case Boolean:
		return "checkbox"
	case Choice:
		return "select"
	case MultiChoice:
		return "select-multiple"
	case Email:
		return "email"
	case URL:
		return "url"
	case Password:
		return "password"
	}
	return "text"
}
