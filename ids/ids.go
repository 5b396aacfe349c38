// Package ids converts document identifiers between their store form
// (primitive.ObjectID) and the hex string used in URLs, JSON and forms.
package ids

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidID is returned for strings that are not 24-character hex ObjectIDs.
var ErrInvalidID = errors.New("invalid id")

// Parse decodes a hex identifier. It never returns a usable id on failure.
func Parse(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// String encodes an id. Values that are not ObjectIDs are formatted as-is so
// documents written by other tools still render.
func String(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case *primitive.ObjectID:
		if id == nil {
			return ""
		}
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// Of returns the string id of a stored document.
func Of(doc bson.M) string {
	return String(doc["_id"])
}

// Present converts a stored document into its wire form: "_id" becomes "id",
// nested ObjectIDs become hex strings, BSON datetimes become time.Time and
// BSON arrays/documents become plain slices and maps.
func Present(doc bson.M, hidden ...string) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_id" {
			out["id"] = String(v)
			continue
		}
		out[k] = value(v)
	}
	for _, h := range hidden {
		delete(out, h)
	}
	return out
}

// PresentAll applies Present to each document and never returns nil.
func PresentAll(docs []bson.M, hidden ...string) []map[string]any {
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, Present(d, hidden...))
	}
	return out
}

func value(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case bson.M:
		return Present(t)
	case map[string]any:
		return Present(bson.M(t))
	case bson.D:
		return Present(t.Map())
	case bson.A:
		return list([]any(t))
	case []any:
		return list(t)
	default:
		return v
	}
}

func list(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = value(v)
	}
	return out
}
