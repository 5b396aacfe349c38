// Package testutil builds seeded in-memory catalogs and tokens for package
// tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"mixmaster/auth"
	"mixmaster/catalog"
	"mixmaster/db"
	"mixmaster/ids"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// Clock is the fixed time seeded catalogs stamp documents with.
var Clock = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// AdminPassword is the password of the seeded administrator.
const AdminPassword = "shaken-not-stirred"

// UserPassword is the password of the seeded regular user.
const UserPassword = "on-the-rocks"

// Fixtures are the ids of the seeded documents.
type Fixtures struct {
	Admin  bson.M
	User   bson.M
	Mojito bson.M
}

// NewCatalog returns a catalog over an empty in-memory store with a fixed
// clock.
func NewCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New(db.NewMemoryStore())
	c.Now = func() time.Time { return Clock }
	return c
}

// Create inserts input through the API schema and fails the test on error.
func Create(t *testing.T, c *catalog.Catalog, entity string, input map[string]any) bson.M {
	t.Helper()
	doc, err := c.Create(context.Background(), c.MustEntity(entity), input)
	require.NoError(t, err, "seed %s", entity)
	return doc
}

// Seed fills c with a small bar: reference tables, units, a few ingredients
// and utensils, one Mojito, an administrator and a regular user.
func Seed(t *testing.T, c *catalog.Catalog) Fixtures {
	t.Helper()
	for _, name := range []string{"Spirit", "Citrus", "Sweetener", "Herb"} {
		Create(t, c, "ingredient_type", map[string]any{"name": name, "name_en": name})
	}
	for _, name := range []string{"Glass", "Tool"} {
		Create(t, c, "utensil_type", map[string]any{"name": name, "name_en": name})
	}
	for _, name := range []string{"sweet", "sour", "fresh"} {
		Create(t, c, "flavor_profile", map[string]any{"name": name, "name_en": name})
	}

	Create(t, c, "unit_of_measure", map[string]any{"name": "ml", "name_en": "ml", "kind": "volume", "ml_conversion": 1.0})
	Create(t, c, "unit_of_measure", map[string]any{"name": "oz", "name_en": "oz", "kind": "volume", "ml_conversion": 29.5735})
	Create(t, c, "unit_of_measure", map[string]any{"name": "g", "name_en": "g", "kind": "weight"})
	Create(t, c, "unit_of_measure", map[string]any{"name": "leaf", "name_en": "leaf", "kind": "count"})

	Create(t, c, "ingredient", map[string]any{
		"name": "Rum", "name_en": "Rum", "types": []any{"Spirit"}, "units": []any{"ml", "oz"},
		"alcohol_content": 40.0,
	})
	Create(t, c, "ingredient", map[string]any{
		"name": "Lime", "name_en": "Lime", "types": []any{"Citrus"}, "units": []any{"ml"},
		"flavor_profiles": []any{"sour"},
	})
	Create(t, c, "ingredient", map[string]any{
		"name": "Sugar", "name_en": "Sugar", "types": []any{"Sweetener"}, "units": []any{"g"},
	})
	Create(t, c, "ingredient", map[string]any{
		"name": "Mint", "name_en": "Mint", "types": []any{"Herb"}, "units": []any{"leaf"},
	})

	Create(t, c, "utensil", map[string]any{"name": "Shaker", "name_en": "Shaker", "types": []any{"Tool"}})
	Create(t, c, "utensil", map[string]any{"name": "Highball", "name_en": "Highball", "types": []any{"Glass"}})

	mojito := Create(t, c, "drink", MojitoInput())

	admin := Create(t, c, "user", map[string]any{
		"email": "admin@mixmaster.test", "name": "Admin", "password": AdminPassword, "is_admin": true,
	})
	user := Create(t, c, "user", map[string]any{
		"email": "guest@mixmaster.test", "name": "Guest", "password": UserPassword,
	})
	return Fixtures{Admin: admin, User: user, Mojito: mojito}
}

// MojitoInput is a valid drink payload over the seeded ingredients.
func MojitoInput() map[string]any {
	return map[string]any{
		"name":        "Mojito",
		"name_en":     "Mojito",
		"description": "Cuban highball with rum, lime and mint.",
		"difficulty":  "easy",
		"prep_time":   5.0,
		"ingredients": []any{
			map[string]any{"ingredient": "Rum", "quantity": 50.0, "unit": "ml"},
			map[string]any{"ingredient": "Lime", "quantity": 25.0, "unit": "ml"},
			map[string]any{"ingredient": "Sugar", "quantity": 10.0, "unit": "g"},
			map[string]any{"ingredient": "Mint", "quantity": 6.0, "unit": "leaf", "optional": true},
		},
		"utensils":       []any{"Shaker", "Highball"},
		"steps":          []any{"Muddle mint with sugar and lime.", "Add rum and ice.", "Top with soda."},
		"categories":     []any{"classic"},
		"flavor_profile": map[string]any{"fresh": 5.0, "sour": 3.0},
	}
}

// Token signs an API token for a stored user.
func Token(t *testing.T, user bson.M) string {
	t.Helper()
	token, _, err := auth.IssueToken(user, time.Hour)
	require.NoError(t, err)
	return token
}

// ID is the hex id of a stored document.
func ID(doc bson.M) string { return ids.Of(doc) }
