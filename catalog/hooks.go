package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"mixmaster/auth"
	"mixmaster/db"
	"mixmaster/forms"
	"mixmaster/globals"
	"mixmaster/ids"

	"go.mongodb.org/mongo-driver/bson"
)

type currentKey struct{}

// withCurrent makes the stored document being updated visible to clean
// functions.
func withCurrent(ctx context.Context, doc bson.M) context.Context {
	return context.WithValue(ctx, currentKey{}, doc)
}

func current(ctx context.Context) bson.M {
	doc, _ := ctx.Value(currentKey{}).(bson.M)
	return doc
}

// pick reads a field from validated data, falling back to the stored
// document on partial updates.
func pick(ctx context.Context, data bson.M, field string) any {
	if v, ok := data[field]; ok {
		return v
	}
	if doc := current(ctx); doc != nil {
		return doc[field]
	}
	return nil
}

func positive(field string) forms.CleanFunc {
	return func(_ context.Context, data bson.M, errs forms.Errors) error {
		if v, ok := data[field].(float64); ok && v <= 0 {
			errs.Add(field, "Ensure this value is greater than 0.")
		}
		return nil
	}
}

func cleanUnit(ctx context.Context, data bson.M, errs forms.Errors) error {
	kind, _ := pick(ctx, data, "kind").(string)
	if pick(ctx, data, "ml_conversion") != nil && kind != KindVolume {
		errs.Add("ml_conversion", "Only volume units convert to ml.")
	}
	return nil
}

// checkDrinkUnits verifies every line's unit is one the ingredient allows.
// Unknown ingredient names were already reported by the field itself.
func (c *Catalog) checkDrinkUnits(ctx context.Context, data bson.M, errs forms.Errors) error {
	raw, ok := data["ingredients"]
	if !ok {
		return nil
	}
	lines := forms.ReadIngredientLines(raw)
	names := make([]string, 0, len(lines))
	for _, l := range lines {
		if !slices.Contains(names, l.Ingredient) {
			names = append(names, l.Ingredient)
		}
	}
	if len(names) == 0 {
		return nil
	}

	docs, err := c.store.Collection(db.Ingredients).Find(ctx, bson.M{"name": bson.M{"$in": names}}, db.FindOptions{})
	if err != nil {
		return fmt.Errorf("load ingredient units: %w", err)
	}
	allowed := map[string][]string{}
	for _, d := range docs {
		name, _ := d["name"].(string)
		allowed[name] = append(allowed[name], strs(d["units"])...)
	}
	for i, l := range lines {
		units, known := allowed[l.Ingredient]
		if known && !slices.Contains(units, l.Unit) {
			errs.Add("ingredients", fmt.Sprintf("Item %d: unit %q is not allowed for %s.", i+1, l.Unit, l.Ingredient))
		}
	}
	return nil
}

// mergeIngredients folds the drink form's two ingredient groups into the
// stored list, spirits first.
func mergeIngredients(_ context.Context, data bson.M, errs forms.Errors) error {
	lines := append(forms.ReadIngredientLines(data["spirits"]), forms.ReadIngredientLines(data["other_ingredients"])...)
	if len(lines) == 0 {
		errs.Add("spirits", "Add at least one ingredient.")
		return nil
	}
	for i := range lines {
		lines[i].Order = i + 1
	}
	data["ingredients"] = forms.LinesDocs(lines)
	return nil
}

// SplitIngredients separates lines whose ingredient carries the spirit type
// from the rest. Both groups keep their stored order.
func (c *Catalog) SplitIngredients(ctx context.Context, lines []forms.IngredientLine) (spirits, others []forms.IngredientLine, err error) {
	types, err := c.store.Collection(db.IngredientTypes).Find(ctx, bson.M{}, db.FindOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("load ingredient types: %w", err)
	}
	var spiritTypes []string
	for _, t := range types {
		name, _ := t["name"].(string)
		nameEn, _ := t["name_en"].(string)
		if strings.EqualFold(name, SpiritType) || strings.EqualFold(nameEn, SpiritType) {
			spiritTypes = append(spiritTypes, name)
		}
	}

	isSpirit := map[string]bool{}
	if len(spiritTypes) > 0 {
		docs, err := c.store.Collection(db.Ingredients).Find(ctx, bson.M{"types": bson.M{"$in": spiritTypes}}, db.FindOptions{})
		if err != nil {
			return nil, nil, fmt.Errorf("load spirits: %w", err)
		}
		for _, d := range docs {
			name, _ := d["name"].(string)
			isSpirit[name] = true
		}
	}

	sorted := slices.Clone(lines)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	for _, l := range sorted {
		if isSpirit[l.Ingredient] {
			spirits = append(spirits, l)
		} else {
			others = append(others, l)
		}
	}
	return spirits, others, nil
}

func (c *Catalog) splitDrink(ctx context.Context, doc bson.M) (map[string]any, error) {
	spirits, others, err := c.SplitIngredients(ctx, forms.ReadIngredientLines(doc["ingredients"]))
	if err != nil {
		return nil, err
	}
	values := map[string]any{}
	for k, v := range doc {
		values[k] = v
	}
	delete(values, "ingredients")
	values["spirits"] = forms.LinesDocs(spirits)
	values["other_ingredients"] = forms.LinesDocs(others)
	return values, nil
}

func (c *Catalog) drinkCreated(ctx context.Context, data bson.M) error {
	now := c.Now()
	name, _ := data["name"].(string)
	data["slug"] = forms.Slugify(name)
	data["created_at"] = now
	data["updated_at"] = now
	if uid, ok := ctx.Value(globals.UserIDKey).(string); ok && uid != "" {
		data["created_by"] = uid
	}
	return nil
}

func (c *Catalog) drinkUpdated(_ context.Context, data bson.M) error {
	data["updated_at"] = c.Now()
	return nil
}

func (c *Catalog) uniqueEmail(ctx context.Context, data bson.M, errs forms.Errors) error {
	email, ok := data["email"].(string)
	if !ok || email == "" {
		return nil
	}
	existing, err := c.store.Collection(db.Users).FindOne(ctx, bson.M{"email": email})
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if cur := current(ctx); cur != nil && ids.Of(cur) == ids.Of(existing) {
		return nil
	}
	errs.Add("email", "A user with this email already exists.")
	return nil
}

func minPassword(_ context.Context, data bson.M, errs forms.Errors) error {
	if pw, _ := data["password"].(string); pw != "" && len(pw) < auth.MinPasswordLength {
		errs.Add("password", fmt.Sprintf("Ensure this field has at least %d characters.", auth.MinPasswordLength))
	}
	return nil
}

func (c *Catalog) userCreated(_ context.Context, data bson.M) error {
	if err := hashPassword(data); err != nil {
		return err
	}
	data["date_joined"] = c.Now()
	return nil
}

func userUpdated(_ context.Context, data bson.M) error {
	return hashPassword(data)
}

// hashPassword replaces the plain password with its hash. A blank password
// leaves the stored hash untouched.
func hashPassword(data bson.M) error {
	pw, present := data["password"].(string)
	delete(data, "password")
	if !present || pw == "" {
		return nil
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	data["password_hash"] = hash
	return nil
}

func strs(v any) []string {
	var out []string
	switch l := v.(type) {
	case []string:
		return l
	case bson.A:
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		out = append(out, l)
	}
	return out
}
