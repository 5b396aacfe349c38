package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"mixmaster/db"
	"mixmaster/forms"
	"mixmaster/ids"
	"mixmaster/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SearchLimit caps search results.
const SearchLimit = 10

// ListFilter builds a store filter from the entity's declared list filters.
// Unknown parameters are ignored.
func (e *Entity) ListFilter(q url.Values) bson.M {
	filter := bson.M{}
	for param, field := range e.Filters {
		if v := strings.TrimSpace(q.Get(param)); v != "" {
			filter[field] = v
		}
	}
	return filter
}

// List returns every document matching filter in natural store order.
func (c *Catalog) List(ctx context.Context, e *Entity, filter bson.M) ([]bson.M, error) {
	if filter == nil {
		filter = bson.M{}
	}
	docs, err := c.coll(e).Find(ctx, filter, db.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", e.Name, err)
	}
	return docs, nil
}

// Get loads one document. Malformed and unknown ids both yield ErrNotFound.
func (c *Catalog) Get(ctx context.Context, e *Entity, id string) (bson.M, error) {
	oid, err := c.parse(e, id)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, e, oid)
}

func (c *Catalog) get(ctx context.Context, e *Entity, oid primitive.ObjectID) (bson.M, error) {
	doc, err := c.coll(e).FindOne(ctx, db.ByID(oid))
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%s %s: %w", e.Name, oid.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", e.Name, err)
	}
	return doc, nil
}

func (c *Catalog) parse(e *Entity, id string) (primitive.ObjectID, error) {
	oid, err := ids.Parse(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s %q: %w", e.Name, id, ErrNotFound)
	}
	return oid, nil
}

// Create validates input against the API schema and inserts it.
func (c *Catalog) Create(ctx context.Context, e *Entity, input map[string]any) (bson.M, error) {
	return c.create(ctx, e, e.Schema, input)
}

// CreateFromForm is Create for admin form input.
func (c *Catalog) CreateFromForm(ctx context.Context, e *Entity, input map[string]any) (bson.M, error) {
	return c.create(ctx, e, e.AdminSchema(), input)
}

func (c *Catalog) create(ctx context.Context, e *Entity, s *forms.Schema, input map[string]any) (bson.M, error) {
	data, err := s.Validate(ctx, input, forms.Create)
	if err != nil {
		return nil, err
	}
	s.StripTransient(data)

	// Not atomic: two concurrent creates can read the same maximum.
	if e.AutoOrder && data["order"] == nil {
		next, err := c.nextOrder(ctx, e)
		if err != nil {
			return nil, err
		}
		data["order"] = next
	}
	if err := s.Derive(ctx, data, true); err != nil {
		return nil, fmt.Errorf("create %s: %w", e.Name, err)
	}

	oid, err := c.coll(e).InsertOne(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", e.Name, err)
	}
	metrics.Write(e.Name, "create")
	return c.get(ctx, e, oid)
}

func (c *Catalog) nextOrder(ctx context.Context, e *Entity) (int, error) {
	docs, err := c.coll(e).Find(ctx, bson.M{}, db.FindOptions{Sort: "-order", Limit: 1})
	if err != nil {
		return 0, fmt.Errorf("next %s order: %w", e.Name, err)
	}
	if len(docs) == 0 {
		return 1, nil
	}
	switch n := docs[0]["order"].(type) {
	case int32:
		return int(n) + 1, nil
	case int64:
		return int(n) + 1, nil
	case float64:
		return int(n) + 1, nil
	}
	return 1, nil
}

// Update validates input against the API schema and applies it. Replace
// validates every field, Patch only the supplied ones.
func (c *Catalog) Update(ctx context.Context, e *Entity, id string, input map[string]any, mode forms.Mode) (bson.M, error) {
	return c.update(ctx, e, e.Schema, id, input, mode)
}

// UpdateFromForm is Update for a full admin form.
func (c *Catalog) UpdateFromForm(ctx context.Context, e *Entity, id string, input map[string]any) (bson.M, error) {
	return c.update(ctx, e, e.AdminSchema(), id, input, forms.Replace)
}

func (c *Catalog) update(ctx context.Context, e *Entity, s *forms.Schema, id string, input map[string]any, mode forms.Mode) (bson.M, error) {
	oid, err := c.parse(e, id)
	if err != nil {
		return nil, err
	}
	cur, err := c.get(ctx, e, oid)
	if err != nil {
		return nil, err
	}
	ctx = withCurrent(ctx, cur)

	data, err := s.Validate(ctx, input, mode)
	if err != nil {
		return nil, err
	}
	s.StripTransient(data)
	if e.AutoOrder {
		if v, ok := data["order"]; ok && v == nil {
			delete(data, "order")
		}
	}
	if err := s.Derive(ctx, data, false); err != nil {
		return nil, fmt.Errorf("update %s: %w", e.Name, err)
	}
	if err := c.set(ctx, e, oid, data); err != nil {
		return nil, err
	}
	return c.get(ctx, e, oid)
}

func (c *Catalog) set(ctx context.Context, e *Entity, oid primitive.ObjectID, data bson.M) error {
	if len(data) == 0 {
		return nil
	}
	err := c.coll(e).UpdateOne(ctx, oid, data)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", e.Name, oid.Hex(), ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", e.Name, err)
	}
	metrics.Write(e.Name, "update")
	return nil
}

// SetFields writes server-owned fields such as image URLs, bypassing the
// field table. Update hooks still run, so timestamps stay current.
func (c *Catalog) SetFields(ctx context.Context, e *Entity, id string, fields bson.M) (bson.M, error) {
	oid, err := c.parse(e, id)
	if err != nil {
		return nil, err
	}
	data := bson.M{}
	for k, v := range fields {
		data[k] = v
	}
	if err := e.Schema.Derive(ctx, data, false); err != nil {
		return nil, fmt.Errorf("update %s: %w", e.Name, err)
	}
	if err := c.set(ctx, e, oid, data); err != nil {
		return nil, err
	}
	return c.get(ctx, e, oid)
}

// Delete removes a document. Documents referencing it by name are left as
// they are.
func (c *Catalog) Delete(ctx context.Context, e *Entity, id string) error {
	oid, err := c.parse(e, id)
	if err != nil {
		return err
	}
	err = c.coll(e).DeleteOne(ctx, oid)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", e.Name, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", e.Name, err)
	}
	metrics.Write(e.Name, "delete")
	return nil
}

// Search finds up to SearchLimit documents whose search fields contain q,
// case-insensitively. q is matched literally. A blank q finds nothing.
func (c *Catalog) Search(ctx context.Context, e *Entity, q string) ([]bson.M, error) {
	if len(e.SearchFields) == 0 {
		return nil, fmt.Errorf("search %s: %w", e.Name, ErrUnsupported)
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return []bson.M{}, nil
	}
	pattern := regexp.QuoteMeta(q)
	or := make([]bson.M, 0, len(e.SearchFields))
	for _, f := range e.SearchFields {
		or = append(or, bson.M{f: bson.M{"$regex": pattern, "$options": "i"}})
	}
	docs, err := c.coll(e).Find(ctx, bson.M{"$or": or}, db.FindOptions{Limit: SearchLimit})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", e.Name, err)
	}
	return docs, nil
}

// Duplicate copies a document through the regular create path under the
// name CopyPrefix + original name. Identifier, slug, timestamps and author
// are assigned afresh.
func (c *Catalog) Duplicate(ctx context.Context, e *Entity, id string) (bson.M, error) {
	if !e.Duplicate {
		return nil, fmt.Errorf("duplicate %s: %w", e.Name, ErrUnsupported)
	}
	src, err := c.Get(ctx, e, id)
	if err != nil {
		return nil, err
	}
	input := map[string]any{}
	for k, v := range src {
		switch k {
		case "_id", "slug", "created_at", "updated_at", "created_by":
			continue
		}
		input[k] = v
	}
	name, _ := src["name"].(string)
	input["name"] = CopyPrefix + name
	return c.Create(ctx, e, input)
}

// FormValues returns the admin form values of a stored document.
func (c *Catalog) FormValues(ctx context.Context, e *Entity, doc bson.M) (map[string]any, error) {
	if e.FormValues != nil {
		return e.FormValues(ctx, doc)
	}
	values := make(map[string]any, len(doc))
	for k, v := range doc {
		values[k] = v
	}
	return values, nil
}

// Present is the wire form of a document with the entity's hidden fields
// removed.
func (e *Entity) Present(doc bson.M) map[string]any {
	return ids.Present(doc, e.Hidden...)
}

// PresentAll applies Present to each document.
func (e *Entity) PresentAll(docs []bson.M) []map[string]any {
	return ids.PresentAll(docs, e.Hidden...)
}
