package catalog

import (
	"mixmaster/db"
	"mixmaster/forms"
)

// Unit kinds.
const (
	KindVolume = "volume"
	KindWeight = "weight"
	KindCount  = "count"
)

// SpiritType is the ingredient type whose members the drink form lists as
// spirits. It matches a type's name or English name, case-insensitively.
const SpiritType = "Spirit"

// CopyPrefix is prepended to the name of a duplicated drink.
const CopyPrefix = "Copy of "

var (
	difficulties   = []string{"easy", "medium", "hard"}
	alcoholLevels  = []string{"none", "low", "medium", "high"}
	unitKinds      = []string{KindVolume, KindWeight, KindCount}
	ingredientHelp = "One per line: <quantity> <unit> <ingredient>, optionally ending in (optional)."
)

func (c *Catalog) register() []*Entity {
	return []*Entity{
		c.reference("ingredient_type", "ingredient-types", "Ingredient types", db.IngredientTypes),
		c.reference("utensil_type", "utensil-types", "Utensil types", db.UtensilTypes),
		c.reference("flavor_profile", "flavor-profiles", "Flavor profiles", db.FlavorProfiles),
		{
			Name:        "unit_of_measure",
			Resource:    "units-of-measure",
			Label:       "Units of measure",
			Collection:  db.UnitsOfMeasure,
			ListDisplay: []string{"name", "name_en", "kind", "ml_conversion"},
			Schema: &forms.Schema{
				Name: "unit_of_measure",
				Fields: []forms.Field{
					{Name: "name", Label: "Name", Kind: forms.String, Required: true, MaxLength: 50},
					{Name: "name_en", Label: "Name (English)", Kind: forms.String, Required: true, MaxLength: 50},
					{Name: "kind", Label: "Kind", Kind: forms.Choice, Required: true, Choices: unitKinds},
					{Name: "ml_conversion", Label: "Conversion to ml", Kind: forms.Float,
						Help: "Millilitres per unit. Volume units only."},
				},
				Clean: []forms.CleanFunc{positive("ml_conversion"), cleanUnit},
			},
		},
		{
			Name:         "ingredient",
			Resource:     "ingredients",
			Label:        "Ingredients",
			Collection:   db.Ingredients,
			ListDisplay:  []string{"name", "name_en", "types", "units", "alcohol_content"},
			SearchFields: []string{"name"},
			Schema: &forms.Schema{
				Name: "ingredient",
				Fields: []forms.Field{
					{Name: "name", Label: "Name", Kind: forms.String, Required: true, MaxLength: 100},
					{Name: "name_en", Label: "Name (English)", Kind: forms.String, Required: true, MaxLength: 100},
					{Name: "types", Label: "Types", Kind: forms.MultiChoice, Required: true,
						Ref: "ingredient type", ChoicesFrom: c.names(db.IngredientTypes)},
					{Name: "units", Label: "Units", Kind: forms.MultiChoice, Required: true,
						Ref: "unit", ChoicesFrom: c.names(db.UnitsOfMeasure)},
					{Name: "description", Label: "Description", Kind: forms.Text, MaxLength: 500},
					{Name: "description_en", Label: "Description (English)", Kind: forms.Text, MaxLength: 500},
					{Name: "flavor_profiles", Label: "Flavor profiles", Kind: forms.MultiChoice,
						Ref: "flavor profile", ChoicesFrom: c.names(db.FlavorProfiles)},
					{Name: "alcohol_content", Label: "Alcohol content (%)", Kind: forms.Float,
						Min: forms.Bound(0), Max: forms.Bound(100)},
					{Name: "density", Label: "Density (g/ml)", Kind: forms.Float},
				},
				Clean: []forms.CleanFunc{positive("density")},
			},
		},
		{
			Name:         "utensil",
			Resource:     "utensils",
			Label:        "Utensils",
			Collection:   db.Utensils,
			ListDisplay:  []string{"name", "name_en", "types"},
			SearchFields: []string{"name"},
			Schema: &forms.Schema{
				Name: "utensil",
				Fields: []forms.Field{
					{Name: "name", Label: "Name", Kind: forms.String, Required: true, MaxLength: 100},
					{Name: "name_en", Label: "Name (English)", Kind: forms.String, Required: true, MaxLength: 100},
					{Name: "types", Label: "Types", Kind: forms.MultiChoice, Required: true,
						Ref: "utensil type", ChoicesFrom: c.names(db.UtensilTypes)},
					{Name: "description", Label: "Description", Kind: forms.Text, MaxLength: 500},
					{Name: "description_en", Label: "Description (English)", Kind: forms.Text, MaxLength: 500},
				},
			},
		},
		c.drink(),
		c.user(),
	}
}

// reference builds the shared registration of the small lookup tables.
func (c *Catalog) reference(name, resource, label, collection string) *Entity {
	return &Entity{
		Name:        name,
		Resource:    resource,
		Label:       label,
		Collection:  collection,
		ListDisplay: []string{"name", "name_en", "order"},
		AutoOrder:   true,
		Schema: &forms.Schema{
			Name: name,
			Fields: []forms.Field{
				{Name: "name", Label: "Name", Kind: forms.String, Required: true, MaxLength: 100},
				{Name: "name_en", Label: "Name (English)", Kind: forms.String, Required: true, MaxLength: 100},
				{Name: "order", Label: "Display order", Kind: forms.Integer, Min: forms.Bound(0),
					Help: "Leave blank to append."},
			},
		},
	}
}

func (c *Catalog) drinkFields(composite bool) []forms.Field {
	ingredients := c.names(db.Ingredients)
	fields := []forms.Field{
		{Name: "name", Label: "Name", Kind: forms.String, Required: true, MaxLength: 100},
		{Name: "name_en", Label: "Name (English)", Kind: forms.String, Required: true, MaxLength: 100},
		{Name: "slug", Kind: forms.String, ReadOnly: true},
		{Name: "description", Label: "Description", Kind: forms.Text, Required: true, MaxLength: 500},
		{Name: "description_en", Label: "Description (English)", Kind: forms.Text, MaxLength: 500},
		{Name: "image_url", Kind: forms.URL, ReadOnly: true},
		{Name: "thumbnail_url", Kind: forms.URL, ReadOnly: true},
		{Name: "difficulty", Label: "Difficulty", Kind: forms.Choice, Choices: difficulties},
		{Name: "alcohol_level", Label: "Alcohol level", Kind: forms.Choice, Choices: alcoholLevels},
		{Name: "prep_time", Label: "Preparation time (minutes)", Kind: forms.Integer, Min: forms.Bound(1)},
		{Name: "servings", Label: "Servings", Kind: forms.Integer, Min: forms.Bound(1)},
	}
	if composite {
		fields = append(fields,
			forms.Field{Name: "spirits", Label: "Spirits", Kind: forms.IngredientLines, Transient: true,
				Ref: "ingredient", ChoicesFrom: ingredients, Help: ingredientHelp},
			forms.Field{Name: "other_ingredients", Label: "Other ingredients", Kind: forms.IngredientLines,
				Transient: true, Ref: "ingredient", ChoicesFrom: ingredients, Help: ingredientHelp},
		)
	} else {
		fields = append(fields, forms.Field{Name: "ingredients", Label: "Ingredients", Kind: forms.IngredientLines,
			Required: true, Ref: "ingredient", ChoicesFrom: ingredients, Help: ingredientHelp})
	}
	return append(fields,
		forms.Field{Name: "utensils", Label: "Utensils", Kind: forms.MultiChoice,
			Ref: "utensil", ChoicesFrom: c.names(db.Utensils)},
		forms.Field{Name: "steps", Label: "Steps", Kind: forms.StringList, Required: true,
			Help: "One step per line."},
		forms.Field{Name: "tips", Label: "Tips", Kind: forms.StringList},
		forms.Field{Name: "tags", Label: "Tags", Kind: forms.StringList, MaxLength: 50},
		forms.Field{Name: "categories", Label: "Categories", Kind: forms.StringList, MaxLength: 50},
		forms.Field{Name: "occasions", Label: "Occasions", Kind: forms.StringList, MaxLength: 50},
		forms.Field{Name: "flavor_profile", Label: "Flavor profile", Kind: forms.Scores,
			Ref: "flavor profile", ChoicesFrom: c.names(db.FlavorProfiles),
			Help: "One per line: <profile>: <0-5>."},
		forms.Field{Name: "created_at", ReadOnly: true},
		forms.Field{Name: "updated_at", ReadOnly: true},
		forms.Field{Name: "created_by", ReadOnly: true},
	)
}

func (c *Catalog) drink() *Entity {
	return &Entity{
		Name:         "drink",
		Resource:     "drinks",
		Label:        "Drinks",
		Collection:   db.Drinks,
		ListDisplay:  []string{"name", "name_en", "difficulty", "alcohol_level", "tags"},
		SearchFields: []string{"name", "description"},
		Filters:      map[string]string{"category": "categories", "difficulty": "difficulty"},
		Duplicate:    true,
		Schema: &forms.Schema{
			Name:     "drink",
			Fields:   c.drinkFields(false),
			Clean:    []forms.CleanFunc{c.checkDrinkUnits},
			OnCreate: c.drinkCreated,
			OnUpdate: c.drinkUpdated,
		},
		FormSchema: &forms.Schema{
			Name:     "drink",
			Fields:   c.drinkFields(true),
			Clean:    []forms.CleanFunc{mergeIngredients, c.checkDrinkUnits},
			OnCreate: c.drinkCreated,
			OnUpdate: c.drinkUpdated,
		},
		FormValues: c.splitDrink,
	}
}

func (c *Catalog) user() *Entity {
	return &Entity{
		Name:        "user",
		Resource:    "users",
		Label:       "Users",
		Collection:  db.Users,
		ListDisplay: []string{"email", "name", "is_admin", "is_active"},
		Hidden:      []string{"password", "password_hash"},
		Schema: &forms.Schema{
			Name: "user",
			Fields: []forms.Field{
				{Name: "email", Label: "Email", Kind: forms.Email, Required: true, MaxLength: 254},
				{Name: "name", Label: "Name", Kind: forms.String, Required: true, MaxLength: 150},
				{Name: "password", Label: "Password", Kind: forms.Password, RequiredOnCreate: true,
					WriteOnly: true, MaxLength: 128, Help: "Leave blank to keep the current password."},
				{Name: "is_admin", Label: "Administrator", Kind: forms.Boolean, Default: false},
				{Name: "is_active", Label: "Active", Kind: forms.Boolean, Default: true},
				{Name: "date_joined", ReadOnly: true},
				{Name: "last_login", ReadOnly: true},
			},
			Clean:    []forms.CleanFunc{c.uniqueEmail, minPassword},
			OnCreate: c.userCreated,
			OnUpdate: userUpdated,
		},
	}
}
