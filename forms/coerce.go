package forms

import (
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// coerce converts a non-blank raw value into the field's canonical type.
func coerce(f Field, raw any, allowed []string) (any, []string) {
	switch f.Kind {
	case String, Text, Password:
		s, ok := raw.(string)
		if !ok {
			return nil, []string{"Not a valid string."}
		}
		if f.Kind != Password {
			s = strings.TrimSpace(s)
		}
		if msg := checkLength(f, s); msg != "" {
			return nil, []string{msg}
		}
		return s, nil

	case Email:
		s, ok := raw.(string)
		if !ok {
			return nil, []string{"Enter a valid email address."}
		}
		addr, err := mail.ParseAddress(strings.TrimSpace(s))
		if err != nil || addr.Name != "" {
			return nil, []string{"Enter a valid email address."}
		}
		return strings.ToLower(addr.Address), nil

	case URL:
		s, ok := raw.(string)
		if !ok {
			return nil, []string{"Enter a valid URL."}
		}
		s = strings.TrimSpace(s)
		u, err := url.ParseRequestURI(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, []string{"Enter a valid URL."}
		}
		return s, nil

	case Integer:
		n, ok := toInt(raw)
		if !ok {
			return nil, []string{"A valid integer is required."}
		}
		if msg := checkRange(f, float64(n)); msg != "" {
			return nil, []string{msg}
		}
		return n, nil

	case Float:
		n, ok := toFloat(raw)
		if !ok {
			return nil, []string{"A valid number is required."}
		}
		if msg := checkRange(f, n); msg != "" {
			return nil, []string{msg}
		}
		return n, nil

	case Boolean:
		b, ok := toBool(raw)
		if !ok {
			return nil, []string{"Must be a valid boolean."}
		}
		return b, nil

	case Choice:
		s, ok := raw.(string)
		if !ok {
			return nil, []string{"Not a valid string."}
		}
		s = strings.TrimSpace(s)
		if msg := checkChoice(f, s, allowed); msg != "" {
			return nil, []string{msg}
		}
		return s, nil

	case MultiChoice:
		items, ok := toStrings(raw, false)
		if !ok {
			return nil, []string{"Expected a list of items."}
		}
		var msgs []string
		for _, s := range items {
			if msg := checkChoice(f, s, allowed); msg != "" {
				msgs = append(msgs, msg)
			}
		}
		if len(msgs) > 0 {
			return nil, msgs
		}
		if f.Required && len(items) == 0 {
			return nil, []string{"This field is required."}
		}
		return items, nil

	case StringList:
		items, ok := toStrings(raw, true)
		if !ok {
			return nil, []string{"Expected a list of items."}
		}
		for _, s := range items {
			if msg := checkLength(f, s); msg != "" {
				return nil, []string{msg}
			}
		}
		if f.Required && len(items) == 0 {
			return nil, []string{"This field is required."}
		}
		return items, nil

	case IngredientLines:
		return coerceIngredients(f, raw, allowed)

	case Scores:
		return coerceScores(f, raw, allowed)
	}
	return nil, []string{fmt.Sprintf("unsupported field kind %d", f.Kind)}
}

func coerceIngredients(f Field, raw any, allowed []string) (any, []string) {
	var lines []IngredientLine
	if s, ok := raw.(string); ok {
		parsed, msgs := ParseIngredientLines(s)
		if len(msgs) > 0 {
			return nil, msgs
		}
		lines = parsed
	} else {
		items, ok := toList(raw)
		if !ok {
			return nil, []string{"Expected a list of ingredients."}
		}
		var msgs []string
		for i, item := range items {
			m, ok := toMap(item)
			if !ok {
				msgs = append(msgs, fmt.Sprintf("Item %d: expected an object.", i+1))
				continue
			}
			line, lineMsgs := ingredientFromMap(m, i)
			msgs = append(msgs, lineMsgs...)
			lines = append(lines, line)
		}
		if len(msgs) > 0 {
			return nil, msgs
		}
	}

	if f.Required && len(lines) == 0 {
		return nil, []string{"This field is required."}
	}

	var msgs []string
	out := make([]any, 0, len(lines))
	for i, l := range lines {
		if l.Order == 0 {
			l.Order = i + 1
		}
		if msg := checkChoice(f, l.Ingredient, allowed); msg != "" {
			msgs = append(msgs, msg)
		}
		out = append(out, l.Doc())
	}
	if len(msgs) > 0 {
		return nil, msgs
	}
	return out, nil
}

func ingredientFromMap(m map[string]any, i int) (IngredientLine, []string) {
	var msgs []string
	prefix := fmt.Sprintf("Item %d: ", i+1)
	line := IngredientLine{}

	name, _ := m["ingredient"].(string)
	line.Ingredient = strings.TrimSpace(name)
	if line.Ingredient == "" {
		msgs = append(msgs, prefix+"ingredient is required.")
	}
	unit, _ := m["unit"].(string)
	line.Unit = strings.TrimSpace(unit)
	if line.Unit == "" {
		msgs = append(msgs, prefix+"unit is required.")
	}
	q, ok := toFloat(m["quantity"])
	switch {
	case !ok:
		msgs = append(msgs, prefix+"quantity must be a number.")
	case q < 0:
		msgs = append(msgs, prefix+"quantity must be greater than or equal to 0.")
	default:
		line.Quantity = q
	}
	if v, present := m["optional"]; present && v != nil {
		b, ok := toBool(v)
		if !ok {
			msgs = append(msgs, prefix+"optional must be a boolean.")
		}
		line.Optional = b
	}
	if v, present := m["order"]; present && v != nil {
		n, ok := toInt(v)
		if !ok || n < 1 {
			msgs = append(msgs, prefix+"order must be a positive integer.")
		}
		line.Order = n
	}
	return line, msgs
}

func coerceScores(f Field, raw any, allowed []string) (any, []string) {
	var pairs map[string]any
	if s, ok := raw.(string); ok {
		parsed, msgs := parseScoreLines(s)
		if len(msgs) > 0 {
			return nil, msgs
		}
		pairs = parsed
	} else if m, ok := toMap(raw); ok {
		pairs = m
	} else {
		return nil, []string{"Expected an object of scores."}
	}

	var msgs []string
	out := bson.M{}
	for k, v := range pairs {
		n, ok := toInt(v)
		if !ok || n < 0 || n > 5 {
			msgs = append(msgs, fmt.Sprintf("%s: score must be an integer between 0 and 5.", k))
			continue
		}
		if msg := checkChoice(f, k, allowed); msg != "" {
			msgs = append(msgs, msg)
			continue
		}
		out[k] = n
	}
	if len(msgs) > 0 {
		return nil, msgs
	}
	return out, nil
}

func parseScoreLines(s string) (map[string]any, []string) {
	out := map[string]any{}
	var msgs []string
	for i, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, score, ok := strings.Cut(line, ":")
		if !ok {
			msgs = append(msgs, fmt.Sprintf("Line %d: expected \"<profile>: <score>\".", i+1))
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(score)
	}
	return out, msgs
}

func checkLength(f Field, s string) string {
	if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
		return fmt.Sprintf("Ensure this field has no more than %d characters.", f.MaxLength)
	}
	return ""
}

func checkRange(f Field, n float64) string {
	if f.Min != nil && n < *f.Min {
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", formatNumber(*f.Min))
	}
	if f.Max != nil && n > *f.Max {
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", formatNumber(*f.Max))
	}
	return ""
}

func checkChoice(f Field, v string, allowed []string) string {
	if !f.choiceBased() || contains(allowed, v) {
		return ""
	}
	if f.Ref != "" {
		return fmt.Sprintf("%s %q not found.", f.Ref, v)
	}
	return fmt.Sprintf("%q is not a valid choice.", v)
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case primitive.A:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case bson.M:
		return len(t) == 0
	}
	return false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "on", "1", "yes":
			return true, true
		case "false", "off", "0", "no", "":
			return false, true
		}
	}
	return false, false
}

// toStrings accepts a list of strings or a single string. With splitLines a
// single string is read one item per line.
func toStrings(v any, splitLines bool) ([]string, bool) {
	if s, ok := v.(string); ok {
		if !splitLines {
			return []string{strings.TrimSpace(s)}, true
		}
		var out []string
		for _, line := range strings.Split(s, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out, true
	}
	if ss, ok := v.([]string); ok {
		v = stringsToList(ss)
	}
	items, ok := toList(v)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

func stringsToList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case primitive.A:
		return l, true
	case []string:
		return stringsToList(l), true
	case []bson.M:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case bson.M:
		return m, true
	case bson.D:
		return m.Map(), true
	}
	return nil, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
