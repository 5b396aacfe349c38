// Package db is the document store gateway: one logical collection per
// entity type with filter-based find and single-document writes. It applies
// no validation and enforces no relationships.
package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names, one per entity type.
const (
	IngredientTypes = "ingredient_types"
	UtensilTypes    = "utensil_types"
	FlavorProfiles  = "flavor_profiles"
	UnitsOfMeasure  = "units_of_measure"
	Ingredients     = "ingredients"
	Utensils        = "utensils"
	Drinks          = "drinks"
	Users           = "users"
)

// ErrNotFound is returned when a single-document operation matches nothing.
var ErrNotFound = errors.New("document not found")

// FindOptions limits and orders a Find. Zero values mean natural order and
// no limit.
type FindOptions struct {
	Limit int64
	// Sort is a field name; a leading "-" sorts descending.
	Sort string
}

// Collection is the per-entity gateway.
type Collection interface {
	Find(ctx context.Context, filter bson.M, opts FindOptions) ([]bson.M, error)
	FindOne(ctx context.Context, filter bson.M) (bson.M, error)
	InsertOne(ctx context.Context, doc bson.M) (primitive.ObjectID, error)
	// UpdateOne applies a partial $set to the document with the given id.
	UpdateOne(ctx context.Context, id primitive.ObjectID, set bson.M) error
	DeleteOne(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context, filter bson.M) (int64, error)
}

// Store hands out collections and owns the connection.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ByID is the filter for a single document.
func ByID(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id}
}

// Names returns the "name" field of every document in a collection, in
// natural order. Used to populate choice lists from reference entities.
func Names(ctx context.Context, c Collection, filter bson.M) ([]string, error) {
	docs, err := c.Find(ctx, filter, FindOptions{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		if n, ok := d["name"].(string); ok {
			names = append(names, n)
		}
	}
	return names, nil
}
