// Package catalog holds the static registration table of every entity type
// and the CRUD service both the admin site and the JSON API drive. New entity
// types are added by declaring an Entity; no controller code changes.
package catalog

import (
	"context"
	"errors"
	"time"

	"mixmaster/db"
	"mixmaster/forms"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound covers both malformed and unknown identifiers.
var ErrNotFound = errors.New("not found")

// ErrUnsupported is returned for operations an entity does not offer.
var ErrUnsupported = errors.New("operation not supported")

// Entity is the immutable registration record of one entity type.
type Entity struct {
	// Name is the model name used in admin URLs and URL names.
	Name string
	// Resource is the API path segment.
	Resource   string
	Label      string
	Collection string

	Schema *forms.Schema
	// FormSchema replaces Schema on the admin site when set.
	FormSchema *forms.Schema
	// FormValues reshapes a stored document into admin form values.
	FormValues func(ctx context.Context, doc bson.M) (map[string]any, error)

	ListDisplay  []string
	SearchFields []string
	// Filters maps list query parameters to stored fields.
	Filters map[string]string
	// Hidden fields are never serialized.
	Hidden []string

	AutoOrder bool
	Duplicate bool
}

// AdminSchema is the schema the admin site renders and validates.
func (e *Entity) AdminSchema() *forms.Schema {
	if e.FormSchema != nil {
		return e.FormSchema
	}
	return e.Schema
}

// URLName derives the name of an admin URL, e.g. "drinks_drink_change".
func (e *Entity) URLName(action string) string {
	return "drinks_" + e.Name + "_" + action
}

// Catalog is the registry plus the store it operates on.
type Catalog struct {
	store    db.Store
	entities []*Entity
	byName   map[string]*Entity
	byPath   map[string]*Entity

	// Now is the clock used for timestamps.
	Now func() time.Time
}

// New builds the registry over store. Reference lookups inside the field
// tables are closures over the same store.
func New(store db.Store) *Catalog {
	c := &Catalog{
		store:  store,
		byName: map[string]*Entity{},
		byPath: map[string]*Entity{},
		Now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	for _, e := range c.register() {
		c.entities = append(c.entities, e)
		c.byName[e.Name] = e
		c.byPath[e.Resource] = e
	}
	return c
}

// Store returns the underlying store.
func (c *Catalog) Store() db.Store { return c.store }

// Entities lists registrations in registration order.
func (c *Catalog) Entities() []*Entity { return c.entities }

// Entity looks a registration up by model name.
func (c *Catalog) Entity(name string) (*Entity, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// ByResource looks a registration up by API path segment.
func (c *Catalog) ByResource(resource string) (*Entity, bool) {
	e, ok := c.byPath[resource]
	return e, ok
}

// MustEntity is Entity for names known at compile time.
func (c *Catalog) MustEntity(name string) *Entity {
	e, ok := c.byName[name]
	if !ok {
		panic("catalog: unknown entity " + name)
	}
	return e
}

func (c *Catalog) coll(e *Entity) db.Collection {
	return c.store.Collection(e.Collection)
}

func (c *Catalog) names(collection string) forms.ChoiceFunc {
	return func(ctx context.Context) ([]string, error) {
		return db.Names(ctx, c.store.Collection(collection), bson.M{})
	}
}
