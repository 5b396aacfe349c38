package forms

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// FromValues turns a posted admin form into validation input. Text stays as
// submitted; Validate does the parsing.
func (s *Schema) FromValues(values url.Values) map[string]any {
	input := map[string]any{}
	for _, f := range s.Fields {
		if f.ReadOnly {
			continue
		}
		switch f.Kind {
		case MultiChoice:
			input[f.Name] = append([]string{}, values[f.Name]...)
		case Boolean:
			input[f.Name] = values.Get(f.Name)
		default:
			if _, ok := values[f.Name]; ok {
				input[f.Name] = values.Get(f.Name)
			}
		}
	}
	return input
}

// BoundField is a field ready to render: current choices, the value to show
// and any inline errors.
type BoundField struct {
	Field
	Value    string
	Checked  bool
	Options  []string
	Selected map[string]bool
	Errors   []string
}

// Bind prepares every editable field for rendering with values (stored
// document values or raw submitted input) and errs. Dynamic choices are
// resolved now, so the rendered lists reflect current store state.
func (s *Schema) Bind(ctx context.Context, values map[string]any, errs Errors) ([]BoundField, error) {
	out := make([]BoundField, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.ReadOnly {
			continue
		}
		b := BoundField{Field: f, Errors: errs[f.Name], Selected: map[string]bool{}}
		if f.Kind == Choice || f.Kind == MultiChoice {
			opts, err := resolveChoices(ctx, f)
			if err != nil {
				return nil, fmt.Errorf("load %s choices: %w", f.Name, err)
			}
			b.Options = opts
		}

		v := values[f.Name]
		switch {
		case f.WriteOnly:
		case f.Kind == Boolean:
			b.Checked, _ = toBool(v)
		case f.Kind == MultiChoice:
			items, _ := toStrings(v, false)
			for _, item := range items {
				b.Selected[item] = true
			}
		case f.Kind == Choice:
			b.Value = FormatValue(f.Kind, v)
			b.Selected[b.Value] = true
		default:
			b.Value = FormatValue(f.Kind, v)
		}
		out = append(out, b)
	}
	return out, nil
}

// FormatValue renders a stored value as form text. Strings are returned
// unchanged so submitted input is shown back exactly as typed.
func FormatValue(k Kind, v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	switch k {
	case StringList, MultiChoice:
		items, _ := toStrings(v, false)
		return strings.Join(items, "\n")
	case IngredientLines:
		return FormatIngredientLines(ReadIngredientLines(v))
	case Scores:
		m, ok := toMap(v)
		if !ok {
			return ""
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([]string, len(keys))
		for i, k := range keys {
			n, _ := toInt(m[k])
			rows[i] = fmt.Sprintf("%s: %d", k, n)
		}
		return strings.Join(rows, "\n")
	case Integer, Float:
		if f, ok := toFloat(v); ok {
			return formatNumber(f)
		}
	}
	return fmt.Sprint(v)
}

// Display renders any stored value for list columns.
func Display(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "yes"
		}
		return "no"
	}
	if f, ok := toFloat(v); ok {
		return formatNumber(f)
	}
	if items, ok := toList(v); ok {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, Display(item))
		}
		return strings.Join(parts, ", ")
	}
	if m, ok := toMap(v); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + Display(m[k])
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
