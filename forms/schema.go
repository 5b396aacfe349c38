package forms

import (
	"context"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
)

// CleanFunc runs after every field coerced cleanly. It may add errors or
// rewrite data; a returned error is a store fault, not a validation failure.
type CleanFunc func(ctx context.Context, data bson.M, errs Errors) error

// DeriveFunc sets server-computed values on validated data.
type DeriveFunc func(ctx context.Context, data bson.M) error

// Schema is an entity's declarative field table.
type Schema struct {
	Name   string
	Fields []Field
	Clean  []CleanFunc

	OnCreate DeriveFunc
	OnUpdate DeriveFunc
}

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Mode selects how missing fields are treated.
type Mode int

const (
	// Create validates every field and enforces RequiredOnCreate.
	Create Mode = iota
	// Replace validates every field.
	Replace
	// Patch validates only the fields present in input.
	Patch
)

// Validate coerces input against the field table. In Patch mode only fields
// present in input are validated and missing required fields are not
// reported. Fields with a Default that are absent from input get the
// Default on Create and are left out of the result otherwise. The result holds canonical Go values ready for the store.
func (s *Schema) Validate(ctx context.Context, input map[string]any, mode Mode) (bson.M, error) {
	data := bson.M{}
	errs := Errors{}
	choices := newChoiceCache()

	for _, f := range s.Fields {
		if f.ReadOnly {
			continue
		}
		raw, present := input[f.Name]
		if mode == Patch && !present {
			continue
		}
		if !present && f.Default != nil {
			// Replace keeps the stored value of an omitted defaulted field.
			if mode == Create {
				data[f.Name] = f.Default
			}
			continue
		}
		if isBlank(raw) {
			if f.Required || (f.RequiredOnCreate && mode == Create) {
				errs.Add(f.Name, "This field is required.")
				continue
			}
			data[f.Name] = zero(f.Kind)
			continue
		}

		var allowed []string
		if f.choiceBased() {
			var err error
			if allowed, err = choices.get(ctx, f); err != nil {
				return nil, fmt.Errorf("load %s choices: %w", f.Name, err)
			}
		}

		val, msgs := coerce(f, raw, allowed)
		if len(msgs) > 0 {
			for _, m := range msgs {
				errs.Add(f.Name, m)
			}
			continue
		}
		data[f.Name] = val
	}

	if errs.Empty() {
		for _, clean := range s.Clean {
			if err := clean(ctx, data, errs); err != nil {
				return nil, err
			}
		}
	}
	if !errs.Empty() {
		return nil, &ValidationError{Errors: errs}
	}
	return data, nil
}

// Derive applies the create or update hook.
func (s *Schema) Derive(ctx context.Context, data bson.M, create bool) error {
	hook := s.OnUpdate
	if create {
		hook = s.OnCreate
	}
	if hook == nil {
		return nil
	}
	return hook(ctx, data)
}

// Defaults returns the initial values of an empty form.
func (s *Schema) Defaults() map[string]any {
	out := map[string]any{}
	for _, f := range s.Fields {
		if f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

// StripTransient removes form-only fields.
func (s *Schema) StripTransient(data bson.M) {
	for _, f := range s.Fields {
		if f.Transient {
			delete(data, f.Name)
		}
	}
}

func resolveChoices(ctx context.Context, f Field) ([]string, error) {
	if f.ChoicesFrom != nil {
		return f.ChoicesFrom(ctx)
	}
	return f.Choices, nil
}

type choiceCache map[string][]string

func newChoiceCache() choiceCache { return choiceCache{} }

func (c choiceCache) get(ctx context.Context, f Field) ([]string, error) {
	if v, ok := c[f.Name]; ok {
		return v, nil
	}
	v, err := resolveChoices(ctx, f)
	if err != nil {
		return nil, err
	}
	c[f.Name] = v
	return v, nil
}

func zero(k Kind) any {
	switch k {
	case MultiChoice, StringList:
		return []string{}
	case IngredientLines:
		return []any{}
	case Scores:
		return bson.M{}
	case Boolean:
		return false
	case Integer, Float:
		return nil
	}
	return ""
}

func contains(list []string, v string) bool {
	return slices.Contains(list, v)
}
