package catalog_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"mixmaster/auth"
	"mixmaster/catalog"
	"mixmaster/forms"
	"mixmaster/globals"
	"mixmaster/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func count(t *testing.T, c *catalog.Catalog, e *catalog.Entity) int64 {
	t.Helper()
	n, err := c.Store().Collection(e.Collection).Count(context.Background(), bson.M{})
	require.NoError(t, err)
	return n
}

func validationErrors(t *testing.T, err error) forms.Errors {
	t.Helper()
	var verr *forms.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Errors
}

func TestRegistry(t *testing.T) {
	c := testutil.NewCatalog(t)

	var names []string
	for _, e := range c.Entities() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{
		"ingredient_type", "utensil_type", "flavor_profile", "unit_of_measure",
		"ingredient", "utensil", "drink", "user",
	}, names)

	e, ok := c.ByResource("units-of-measure")
	require.True(t, ok)
	assert.Equal(t, "unit_of_measure", e.Name)
	assert.Equal(t, "drinks_unit_of_measure_change", e.URLName("change"))

	_, ok = c.Entity("cocktail")
	assert.False(t, ok)
	assert.Panics(t, func() { c.MustEntity("cocktail") })
}

func TestCreateMissingRequiredFieldPersistsNothing(t *testing.T) {
	c := testutil.NewCatalog(t)
	testutil.Seed(t, c)
	ctx := context.Background()

	for _, e := range c.Entities() {
		t.Run(e.Name, func(t *testing.T) {
			before := count(t, c, e)
			_, err := c.Create(ctx, e, map[string]any{})
			errs := validationErrors(t, err)
			assert.Contains(t, errs["name"], "This field is required.", "errors: %v", errs)
			assert.Equal(t, before, count(t, c, e))
		})
	}
}

func TestUnknownReferenceIsReported(t *testing.T) {
	c := testutil.NewCatalog(t)
	ctx := context.Background()
	testutil.Create(t, c, "ingredient_type", map[string]any{"name": "Citrus", "name_en": "Citrus"})
	testutil.Create(t, c, "unit_of_measure", map[string]any{"name": "ml", "name_en": "ml", "kind": "volume", "ml_conversion": 1.0})

	ingredients := c.MustEntity("ingredient")
	lime, err := c.Create(ctx, ingredients, map[string]any{
		"name": "Lime", "name_en": "Lime", "types": []any{"Citrus"}, "units": []any{"ml"},
	})
	require.NoError(t, err)
	assert.Equal(t, primitive.A{"ml"}, lime["units"])

	before := count(t, c, ingredients)
	_, err = c.Create(ctx, ingredients, map[string]any{
		"name": "Lime2", "name_en": "Lime2", "types": []any{"Citrus"}, "units": []any{"xyz"},
	})
	errs := validationErrors(t, err)
	assert.Equal(t, []string{`unit "xyz" not found.`}, errs["units"])
	assert.Equal(t, before, count(t, c, ingredients))

	// Updates check references against the current store state too.
	_, err = c.Update(ctx, ingredients, testutil.ID(lime), map[string]any{"types": []any{"Spirit"}}, forms.Patch)
	errs = validationErrors(t, err)
	assert.Equal(t, []string{`ingredient type "Spirit" not found.`}, errs["types"])
}

func TestRoundTripAndIdempotentReads(t *testing.T) {
	c := testutil.NewCatalog(t)
	f := testutil.Seed(t, c)
	ctx := context.Background()
	drinks := c.MustEntity("drink")

	first, err := c.Get(ctx, drinks, testutil.ID(f.Mojito))
	require.NoError(t, err)
	second, err := c.Get(ctx, drinks, testutil.ID(f.Mojito))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, f.Mojito, first)

	assert.Equal(t, "Mojito", first["name"])
	assert.Equal(t, "mojito", first["slug"])
	assert.Equal(t, int32(5), first["prep_time"])
	assert.Equal(t, primitive.A{"Shaker", "Highball"}, first["utensils"])
	assert.Equal(t, bson.M{"fresh": int32(5), "sour": int32(3)}, first["flavor_profile"])
	stamp := primitive.NewDateTimeFromTime(testutil.Clock)
	assert.Equal(t, stamp, first["created_at"])
	assert.Equal(t, stamp, first["updated_at"])

	lines := forms.ReadIngredientLines(first["ingredients"])
	require.Len(t, lines, 4)
	assert.Equal(t, forms.IngredientLine{Ingredient: "Rum", Quantity: 50, Unit: "ml", Order: 1}, lines[0])
	assert.Equal(t, forms.IngredientLine{Ingredient: "Mint", Quantity: 6, Unit: "leaf", Optional: true, Order: 4}, lines[3])
}

func TestCreatedByComesFromContext(t *testing.T) {
	c := testutil.NewCatalog(t)
	testutil.Seed(t, c)
	ctx := context.WithValue(context.Background(), globals.UserIDKey, "665f1c2e9b1e8a3d4c5b6a79")

	input := testutil.MojitoInput()
	input["name"] = "Virgin Mojito"
	doc, err := c.Create(ctx, c.MustEntity("drink"), input)
	require.NoError(t, err)
	assert.Equal(t, "665f1c2e9b1e8a3d4c5b6a79", doc["created_by"])
	assert.Equal(t, "virgin-mojito", doc["slug"])
}

func TestAutoOrder(t *testing.T) {
	c := testutil.NewCatalog(t)
	ctx := context.Background()
	profiles := c.MustEntity("flavor_profile")

	for i, name := range []string{"sweet", "sour", "bitter"} {
		doc, err := c.Create(ctx, profiles, map[string]any{"name": name, "name_en": name})
		require.NoError(t, err)
		assert.Equal(t, int32(i+1), doc["order"], name)
	}

	explicit, err := c.Create(ctx, profiles, map[string]any{"name": "umami", "name_en": "umami", "order": 10.0})
	require.NoError(t, err)
	assert.Equal(t, int32(10), explicit["order"])

	next, err := c.Create(ctx, profiles, map[string]any{"name": "salty", "name_en": "salty", "order": ""})
	require.NoError(t, err)
	assert.Equal(t, int32(11), next["order"])

	// A blank order on update keeps the stored one.
	updated, err := c.Update(ctx, profiles, testutil.ID(next), map[string]any{"name": "salty", "name_en": "Salty", "order": ""}, forms.Replace)
	require.NoError(t, err)
	assert.Equal(t, int32(11), updated["order"])
	assert.Equal(t, "Salty", updated["name_en"])
}

func TestSearch(t *testing.T) {
	c := testutil.NewCatalog(t)
	testutil.Seed(t, c)
	ctx := context.Background()
	drinks := c.MustEntity("drink")

	for _, q := range []string{"mojito", "MOJITO", "moji", " Mojito "} {
		found, err := c.Search(ctx, drinks, q)
		require.NoError(t, err)
		require.Len(t, found, 1, q)
		assert.Equal(t, "Mojito", found[0]["name"])
	}

	byDescription, err := c.Search(ctx, drinks, "cuban")
	require.NoError(t, err)
	assert.Len(t, byDescription, 1)

	for _, q := range []string{"", "   "} {
		found, err := c.Search(ctx, drinks, q)
		require.NoError(t, err)
		assert.NotNil(t, found)
		assert.Empty(t, found)
	}

	literal, err := c.Search(ctx, drinks, "Mo.ito")
	require.NoError(t, err)
	assert.Empty(t, literal)

	_, err = c.Search(ctx, c.MustEntity("flavor_profile"), "sweet")
	assert.ErrorIs(t, err, catalog.ErrUnsupported)
}

func TestSearchIsCapped(t *testing.T) {
	c := testutil.NewCatalog(t)
	ctx := context.Background()
	testutil.Create(t, c, "utensil_type", map[string]any{"name": "Glass", "name_en": "Glass"})
	utensils := c.MustEntity("utensil")
	for i := 0; i < catalog.SearchLimit+3; i++ {
		name := fmt.Sprintf("Glass %02d", i)
		testutil.Create(t, c, "utensil", map[string]any{"name": name, "name_en": name, "types": []any{"Glass"}})
	}

	found, err := c.Search(ctx, utensils, "glass")
	require.NoError(t, err)
	assert.Len(t, found, catalog.SearchLimit)
}

func TestListFilter(t *testing.T) {
	c := testutil.NewCatalog(t)
	testutil.Seed(t, c)
	ctx := context.Background()
	drinks := c.MustEntity("drink")

	classic, err := c.List(ctx, drinks, drinks.ListFilter(url.Values{"category": {"classic"}}))
	require.NoError(t, err)
	assert.Len(t, classic, 1)

	hard, err := c.List(ctx, drinks, drinks.ListFilter(url.Values{"difficulty": {"hard"}}))
	require.NoError(t, err)
	assert.Empty(t, hard)

	assert.Equal(t, bson.M{}, drinks.ListFilter(url.Values{"colour": {"red"}}))
}

func TestDuplicate(t *testing.T) {
	c := testutil.NewCatalog(t)
	f := testutil.Seed(t, c)
	ctx := context.Background()
	drinks := c.MustEntity("drink")

	later := testutil.Clock.Add(48 * time.Hour)
	c.Now = func() time.Time { return later }

	dup, err := c.Duplicate(ctx, drinks, testutil.ID(f.Mojito))
	require.NoError(t, err)
	assert.NotEqual(t, testutil.ID(f.Mojito), testutil.ID(dup))
	assert.Equal(t, "Copy of Mojito", dup["name"])
	assert.Equal(t, "copy-of-mojito", dup["slug"])
	assert.Equal(t, primitive.NewDateTimeFromTime(later), dup["created_at"])
	assert.Equal(t, primitive.NewDateTimeFromTime(later), dup["updated_at"])
	assert.Equal(t, f.Mojito["ingredients"], dup["ingredients"])
	assert.Equal(t, int64(2), count(t, c, drinks))

	_, err = c.Duplicate(ctx, c.MustEntity("ingredient"), testutil.ID(f.Mojito))
	assert.ErrorIs(t, err, catalog.ErrUnsupported)

	_, err = c.Duplicate(ctx, drinks, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestNotFound(t *testing.T) {
	c := testutil.NewCatalog(t)
	testutil.Seed(t, c)
	ctx := context.Background()
	drinks := c.MustEntity("drink")
	missing := primitive.NewObjectID().Hex()

	for _, id := range []string{missing, "xyz", ""} {
		_, err := c.Get(ctx, drinks, id)
		assert.ErrorIs(t, err, catalog.ErrNotFound, id)
		assert.ErrorIs(t, c.Delete(ctx, drinks, id), catalog.ErrNotFound, id)
		_, err = c.Update(ctx, drinks, id, map[string]any{"name": "x"}, forms.Patch)
		assert.ErrorIs(t, err, catalog.ErrNotFound, id)
	}
}

func TestDeleteLeavesReferencesAlone(t *testing.T) {
	c := testutil.NewCatalog(t)
	f := testutil.Seed(t, c)
	ctx := context.Background()

	utensils, err := c.List(ctx, c.MustEntity("utensil"), bson.M{"name": "Shaker"})
	require.NoError(t, err)
	require.Len(t, utensils, 1)
	require.NoError(t, c.Delete(ctx, c.MustEntity("utensil"), testutil.ID(utensils[0])))

	drink, err := c.Get(ctx, c.MustEntity("drink"), testutil.ID(f.Mojito))
	require.NoError(t, err)
	assert.Equal(t, primitive.A{"Shaker", "Highball"}, drink["utensils"])
}

func TestDrinkUnitMustBeAllowed(t *testing.T) {
	c := testutil.NewCatalog(t)
	testutil.Seed(t, c)

	input := testutil.MojitoInput()
	input["ingredients"] = []any{map[string]any{"ingredient": "Rum", "quantity": 2.0, "unit": "g"}}
	_, err := c.Create(context.Background(), c.MustEntity("drink"), input)
	errs := validationErrors(t, err)
	assert.Equal(t, []string{`Item 1: unit "g" is not allowed for Rum.`}, errs["ingredients"])
}

func TestUnitConversion(t *testing.T) {
	c := testutil.NewCatalog(t)
	ctx := context.Background()
	units := c.MustEntity("unit_of_measure")

	_, err := c.Create(ctx, units, map[string]any{"name": "pinch", "name_en": "pinch", "kind": "count", "ml_conversion": 0.5})
	assert.Equal(t, []string{"Only volume units convert to ml."}, validationErrors(t, err)["ml_conversion"])

	_, err = c.Create(ctx, units, map[string]any{"name": "cl", "name_en": "cl", "kind": "volume", "ml_conversion": -10.0})
	assert.Equal(t, []string{"Ensure this value is greater than 0."}, validationErrors(t, err)["ml_conversion"])

	ml := testutil.Create(t, c, "unit_of_measure", map[string]any{"name": "ml", "name_en": "ml", "kind": "volume", "ml_conversion": 1.0})

	// The stored conversion still applies when only the kind changes.
	_, err = c.Update(ctx, units, testutil.ID(ml), map[string]any{"kind": "weight"}, forms.Patch)
	assert.Equal(t, []string{"Only volume units convert to ml."}, validationErrors(t, err)["ml_conversion"])

	_, err = c.Update(ctx, units, testutil.ID(ml), map[string]any{"kind": "volume", "ml_conversion": "1,5"}, forms.Patch)
	require.NoError(t, err)
}

func TestPatchAndReplace(t *testing.T) {
	c := testutil.NewCatalog(t)
	testutil.Seed(t, c)
	ctx := context.Background()
	ingredients := c.MustEntity("ingredient")

	found, err := c.Search(ctx, ingredients, "rum")
	require.NoError(t, err)
	require.Len(t, found, 1)
	id := testutil.ID(found[0])

	patched, err := c.Update(ctx, ingredients, id, map[string]any{"alcohol_content": 37.5}, forms.Patch)
	require.NoError(t, err)
	assert.Equal(t, 37.5, patched["alcohol_content"])
	assert.Equal(t, "Rum", patched["name"])
	assert.Equal(t, primitive.A{"ml", "oz"}, patched["units"])

	_, err = c.Update(ctx, ingredients, id, map[string]any{"name": "Dark rum"}, forms.Replace)
	errs := validationErrors(t, err)
	assert.Contains(t, errs, "name_en")
	assert.Contains(t, errs, "types")

	unchanged, err := c.Get(ctx, ingredients, id)
	require.NoError(t, err)
	assert.Equal(t, patched, unchanged)
}

func TestDrinkFormComposite(t *testing.T) {
	c := testutil.NewCatalog(t)
	testutil.Seed(t, c)
	ctx := context.Background()
	drinks := c.MustEntity("drink")
	schema := drinks.AdminSchema()

	values := url.Values{
		"name":              {"Daiquiri"},
		"name_en":           {"Daiquiri"},
		"description":       {"Rum sour."},
		"spirits":           {"60 ml Rum"},
		"other_ingredients": {"25 ml Lime\n6 leaf Mint (optional)"},
		"steps":             {"Shake with ice.\nStrain."},
		"utensils":          {"Shaker"},
		"flavor_profile":    {"sour: 4"},
	}
	doc, err := c.CreateFromForm(ctx, drinks, schema.FromValues(values))
	require.NoError(t, err)
	assert.NotContains(t, doc, "spirits")
	assert.NotContains(t, doc, "other_ingredients")

	lines := forms.ReadIngredientLines(doc["ingredients"])
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"Rum", "Lime", "Mint"}, []string{lines[0].Ingredient, lines[1].Ingredient, lines[2].Ingredient})
	assert.Equal(t, []int{1, 2, 3}, []int{lines[0].Order, lines[1].Order, lines[2].Order})
	assert.True(t, lines[2].Optional)

	formValues, err := c.FormValues(ctx, drinks, doc)
	require.NoError(t, err)
	assert.NotContains(t, formValues, "ingredients")
	assert.Equal(t, "60 ml Rum", forms.FormatValue(forms.IngredientLines, formValues["spirits"]))
	assert.Equal(t, "25 ml Lime\n6 leaf Mint (optional)", forms.FormatValue(forms.IngredientLines, formValues["other_ingredients"]))

	values.Set("spirits", "")
	values.Set("other_ingredients", "")
	_, err = c.UpdateFromForm(ctx, drinks, testutil.ID(doc), schema.FromValues(values))
	assert.Equal(t, []string{"Add at least one ingredient."}, validationErrors(t, err)["spirits"])
}

func TestSplitIngredientsWithoutSpiritType(t *testing.T) {
	c := testutil.NewCatalog(t)
	lines := []forms.IngredientLine{
		{Ingredient: "Lime", Unit: "ml", Quantity: 25, Order: 2},
		{Ingredient: "Rum", Unit: "ml", Quantity: 50, Order: 1},
	}
	spirits, others, err := c.SplitIngredients(context.Background(), lines)
	require.NoError(t, err)
	assert.Empty(t, spirits)
	require.Len(t, others, 2)
	assert.Equal(t, "Rum", others[0].Ingredient)
}

func TestUsers(t *testing.T) {
	c := testutil.NewCatalog(t)
	f := testutil.Seed(t, c)
	ctx := context.Background()
	users := c.MustEntity("user")

	assert.NotContains(t, f.User, "password")
	hash, _ := f.User["password_hash"].(string)
	assert.True(t, auth.CheckPassword(hash, testutil.UserPassword))
	assert.Equal(t, true, f.User["is_active"])
	assert.Equal(t, false, f.User["is_admin"])
	assert.Equal(t, primitive.NewDateTimeFromTime(testutil.Clock), f.User["date_joined"])

	presented := users.Present(f.User)
	assert.NotContains(t, presented, "password_hash")
	assert.Equal(t, testutil.ID(f.User), presented["id"])

	_, err := c.Create(ctx, users, map[string]any{"email": "GUEST@mixmaster.test", "name": "Again", "password": "long-enough"})
	assert.Equal(t, []string{"A user with this email already exists."}, validationErrors(t, err)["email"])

	_, err = c.Create(ctx, users, map[string]any{"email": "short@mixmaster.test", "name": "Short", "password": "abc"})
	assert.Contains(t, validationErrors(t, err), "password")

	// Saving the same email and a blank password keeps the stored hash.
	updated, err := c.Update(ctx, users, testutil.ID(f.User), map[string]any{
		"email": "guest@mixmaster.test", "name": "Guest Renamed", "password": "", "is_admin": false, "is_active": true,
	}, forms.Replace)
	require.NoError(t, err)
	assert.Equal(t, "Guest Renamed", updated["name"])
	assert.Equal(t, hash, updated["password_hash"])

	changed, err := c.Update(ctx, users, testutil.ID(f.User), map[string]any{"password": "a-new-secret"}, forms.Patch)
	require.NoError(t, err)
	newHash, _ := changed["password_hash"].(string)
	assert.True(t, auth.CheckPassword(newHash, "a-new-secret"))
}
