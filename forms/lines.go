package forms

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

const optionalMarker = "(optional)"

// IngredientLine is one entry of a drink's ingredient list.
type IngredientLine struct {
	Ingredient string
	Quantity   float64
	Unit       string
	Optional   bool
	Order      int
}

// Doc is the stored form of the line.
func (l IngredientLine) Doc() bson.M {
	return bson.M{
		"ingredient": l.Ingredient,
		"quantity":   l.Quantity,
		"unit":       l.Unit,
		"optional":   l.Optional,
		"order":      l.Order,
	}
}

// String renders the line the way the admin textarea expects it.
func (l IngredientLine) String() string {
	s := fmt.Sprintf("%s %s %s", formatNumber(l.Quantity), l.Unit, l.Ingredient)
	if l.Optional {
		s += " " + optionalMarker
	}
	return s
}

// ParseIngredientLines reads "<quantity> <unit> <ingredient name>" lines with
// an optional trailing "(optional)" marker. Blank lines are skipped.
func ParseIngredientLines(s string) ([]IngredientLine, []string) {
	var out []IngredientLine
	var msgs []string
	for i, raw := range strings.Split(s, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Fields(raw)
		if len(parts) < 3 {
			msgs = append(msgs, fmt.Sprintf("Line %d: expected \"<quantity> <unit> <ingredient>\".", i+1))
			continue
		}
		qty, err := strconv.ParseFloat(strings.ReplaceAll(parts[0], ",", "."), 64)
		if err != nil || qty < 0 {
			msgs = append(msgs, fmt.Sprintf("Line %d: %q is not a valid quantity.", i+1, parts[0]))
			continue
		}
		name := strings.Join(parts[2:], " ")
		optional := false
		if strings.HasSuffix(strings.ToLower(name), optionalMarker) {
			optional = true
			name = strings.TrimSpace(name[:len(name)-len(optionalMarker)])
		}
		if name == "" {
			msgs = append(msgs, fmt.Sprintf("Line %d: ingredient name is missing.", i+1))
			continue
		}
		out = append(out, IngredientLine{
			Ingredient: name,
			Quantity:   qty,
			Unit:       parts[1],
			Optional:   optional,
			Order:      len(out) + 1,
		})
	}
	return out, msgs
}

// ReadIngredientLines decodes a stored or validated ingredient list. Entries
// that are not objects are skipped.
func ReadIngredientLines(v any) []IngredientLine {
	items, ok := toList(v)
	if !ok {
		return nil
	}
	out := make([]IngredientLine, 0, len(items))
	for _, item := range items {
		m, ok := toMap(item)
		if !ok {
			continue
		}
		l := IngredientLine{}
		l.Ingredient, _ = m["ingredient"].(string)
		l.Unit, _ = m["unit"].(string)
		l.Quantity, _ = toFloat(m["quantity"])
		l.Optional, _ = m["optional"].(bool)
		l.Order, _ = toInt(m["order"])
		out = append(out, l)
	}
	return out
}

// LinesDocs converts lines back into their stored form.
func LinesDocs(lines []IngredientLine) []any {
	out := make([]any, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Doc())
	}
	return out
}

// FormatIngredientLines renders lines one per row.
func FormatIngredientLines(lines []IngredientLine) string {
	rows := make([]string, len(lines))
	for i, l := range lines {
		rows[i] = l.String()
	}
	return strings.Join(rows, "\n")
}
