package forms

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func unitSchema(units ...string) *Schema {
	return &Schema{
		Name: "ingredient",
		Fields: []Field{
			{Name: "name", Kind: String, Required: true, MaxLength: 10},
			{Name: "units", Kind: MultiChoice, Required: true, Ref: "unit",
				ChoicesFrom: func(context.Context) ([]string, error) { return units, nil }},
			{Name: "abv", Kind: Float, Min: Bound(0), Max: Bound(100)},
			{Name: "order", Kind: Integer},
			{Name: "kind", Kind: Choice, Choices: []string{"volume", "weight"}},
			{Name: "slug", Kind: String, ReadOnly: true},
		},
	}
}

func fieldErrors(t *testing.T, err error) Errors {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	return verr.Errors
}

func TestValidateRequiredFields(t *testing.T) {
	_, err := unitSchema("ml").Validate(context.Background(), map[string]any{}, Create)
	errs := fieldErrors(t, err)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "units")
	assert.NotContains(t, errs, "abv")
}

func TestValidateUnknownReferenceNamesValue(t *testing.T) {
	_, err := unitSchema("ml", "oz").Validate(context.Background(), map[string]any{
		"name":  "Lime2",
		"units": []any{"ml", "xyz"},
	}, Create)
	errs := fieldErrors(t, err)
	require.Len(t, errs["units"], 1)
	assert.Contains(t, errs["units"][0], "xyz")
	assert.Contains(t, errs["units"][0], "not found")
}

func TestValidateCoercesCanonicalTypes(t *testing.T) {
	data, err := unitSchema("ml").Validate(context.Background(), map[string]any{
		"name":  "  Lime ",
		"units": "ml",
		"abv":   "40,5",
		"order": float64(3),
		"kind":  "volume",
		"slug":  "ignored",
	}, Create)
	require.NoError(t, err)
	assert.Equal(t, "Lime", data["name"])
	assert.Equal(t, []string{"ml"}, data["units"])
	assert.Equal(t, 40.5, data["abv"])
	assert.Equal(t, 3, data["order"])
	assert.NotContains(t, data, "slug")
}

func TestValidateRejectsBadValues(t *testing.T) {
	_, err := unitSchema("ml").Validate(context.Background(), map[string]any{
		"name":  "far too long a name",
		"units": []any{"ml"},
		"abv":   101.0,
		"order": 1.5,
		"kind":  "liquid",
	}, Create)
	errs := fieldErrors(t, err)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "abv")
	assert.Contains(t, errs, "order")
	assert.Contains(t, errs, "kind")
}

func TestValidatePatchOnlyTouchesPresentFields(t *testing.T) {
	data, err := unitSchema("ml").Validate(context.Background(), map[string]any{"abv": 12}, Patch)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"abv": 12.0}, data)

	_, err = unitSchema("ml").Validate(context.Background(), map[string]any{"name": ""}, Patch)
	assert.Contains(t, fieldErrors(t, err), "name")
}

func TestValidateBlankOptionalFieldsAreZeroed(t *testing.T) {
	data, err := unitSchema("ml").Validate(context.Background(), map[string]any{
		"name": "Gin", "units": []string{"ml"},
	}, Replace)
	require.NoError(t, err)
	assert.Nil(t, data["abv"])
	assert.Equal(t, "", data["kind"])
}

func TestRequiredOnCreate(t *testing.T) {
	s := &Schema{Fields: []Field{{Name: "password", Kind: Password, RequiredOnCreate: true}}}
	_, err := s.Validate(context.Background(), map[string]any{}, Create)
	assert.Contains(t, fieldErrors(t, err), "password")

	_, err = s.Validate(context.Background(), map[string]any{"password": ""}, Replace)
	assert.NoError(t, err)
}

func TestDefaultsApplyOnlyOnCreate(t *testing.T) {
	s := &Schema{Fields: []Field{
		{Name: "name", Kind: String, Required: true},
		{Name: "is_active", Kind: Boolean, Default: true},
	}}
	ctx := context.Background()

	data, err := s.Validate(ctx, map[string]any{"name": "Ana"}, Create)
	require.NoError(t, err)
	assert.Equal(t, true, data["is_active"])

	data, err = s.Validate(ctx, map[string]any{"name": "Ana"}, Replace)
	require.NoError(t, err)
	assert.NotContains(t, data, "is_active")

	data, err = s.Validate(ctx, map[string]any{"name": "Ana", "is_active": ""}, Replace)
	require.NoError(t, err)
	assert.Equal(t, false, data["is_active"])
}

func TestChoiceLoaderFailureIsAFault(t *testing.T) {
	boom := errors.New("store down")
	s := &Schema{Fields: []Field{{Name: "types", Kind: MultiChoice,
		ChoicesFrom: func(context.Context) ([]string, error) { return nil, boom }}}}
	_, err := s.Validate(context.Background(), map[string]any{"types": "Spirit"}, Create)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestCleanRunsAfterFields(t *testing.T) {
	called := false
	s := &Schema{
		Fields: []Field{{Name: "kind", Kind: String}, {Name: "ml", Kind: Float}},
		Clean: []CleanFunc{func(_ context.Context, data bson.M, errs Errors) error {
			called = true
			if data["kind"] != "volume" && data["ml"] != nil {
				errs.Add("ml", "only for volume")
			}
			return nil
		}},
	}
	_, err := s.Validate(context.Background(), map[string]any{"kind": "count", "ml": 3}, Create)
	assert.True(t, called)
	assert.Equal(t, []string{"only for volume"}, fieldErrors(t, err)["ml"])
}

func TestIngredientLinesFromJSONAndText(t *testing.T) {
	s := &Schema{Fields: []Field{{Name: "ingredients", Kind: IngredientLines, Required: true, Ref: "ingredient",
		ChoicesFrom: func(context.Context) ([]string, error) { return []string{"White Rum", "Lime"}, nil }}}}

	data, err := s.Validate(context.Background(), map[string]any{"ingredients": []any{
		map[string]any{"ingredient": "White Rum", "quantity": 50.0, "unit": "ml"},
		map[string]any{"ingredient": "Lime", "quantity": 1.0, "unit": "slice", "optional": true},
	}}, Create)
	require.NoError(t, err)
	lines := ReadIngredientLines(data["ingredients"])
	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].Order)
	assert.Equal(t, 2, lines[1].Order)
	assert.True(t, lines[1].Optional)

	data, err = s.Validate(context.Background(), map[string]any{
		"ingredients": "50 ml White Rum\n\n1 slice Lime (optional)\n",
	}, Create)
	require.NoError(t, err)
	assert.Equal(t, lines, ReadIngredientLines(data["ingredients"]))

	_, err = s.Validate(context.Background(), map[string]any{"ingredients": "2 dash Bitters"}, Create)
	assert.Contains(t, fieldErrors(t, err)["ingredients"][0], "Bitters")

	_, err = s.Validate(context.Background(), map[string]any{"ingredients": "splash Lime"}, Create)
	assert.Contains(t, fieldErrors(t, err), "ingredients")
}

func TestScores(t *testing.T) {
	s := &Schema{Fields: []Field{{Name: "flavor_profile", Kind: Scores, Ref: "flavor profile",
		Choices: []string{"Sweet", "Sour"}}}}
	data, err := s.Validate(context.Background(), map[string]any{"flavor_profile": "Sweet: 3\nSour: 5"}, Create)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"Sweet": 3, "Sour": 5}, data["flavor_profile"])

	_, err = s.Validate(context.Background(), map[string]any{"flavor_profile": map[string]any{"Sweet": 6.0, "Umami": 1.0}}, Create)
	assert.Len(t, fieldErrors(t, err)["flavor_profile"], 2)
}

func TestFromValuesAndBindKeepSubmittedInput(t *testing.T) {
	s := unitSchema("ml", "oz")
	values := url.Values{"name": {"Lime with a long name"}, "units": {"oz"}, "abv": {"abc"}}
	input := s.FromValues(values)
	_, err := s.Validate(context.Background(), input, Create)
	errs := fieldErrors(t, err)

	bound, err := s.Bind(context.Background(), input, errs)
	require.NoError(t, err)
	byName := map[string]BoundField{}
	for _, b := range bound {
		byName[b.Name] = b
	}
	assert.Equal(t, "Lime with a long name", byName["name"].Value)
	assert.NotEmpty(t, byName["name"].Errors)
	assert.Equal(t, "abc", byName["abv"].Value)
	assert.Equal(t, []string{"ml", "oz"}, byName["units"].Options)
	assert.True(t, byName["units"].Selected["oz"])
	assert.NotContains(t, byName, "slug")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "a\nb", FormatValue(StringList, []any{"a", "b"}))
	assert.Equal(t, "29.5735", FormatValue(Float, 29.5735))
	assert.Equal(t, "50 ml White Rum\n1 slice Lime (optional)", FormatValue(IngredientLines, []any{
		bson.M{"ingredient": "White Rum", "quantity": 50.0, "unit": "ml", "order": int32(1)},
		bson.M{"ingredient": "Lime", "quantity": 1.0, "unit": "slice", "optional": true, "order": int32(2)},
	}))
	assert.Equal(t, "Sour: 2\nSweet: 4", FormatValue(Scores, bson.M{"Sweet": int32(4), "Sour": int32(2)}))
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Mojito", "mojito"},
		{"Caipirinha de Limão", "caipirinha-de-limao"},
		{"  Copy of: Piña Colada!! ", "copy-of-pina-colada"},
		{"Gin & Tonic", "gin-tonic"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Slugify(c.in), c.in)
	}
}
