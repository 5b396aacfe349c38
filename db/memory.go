package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps documents in process. Documents are stored as encoded
// BSON, so reads return the same Go types the MongoDB driver decodes
// (int32/int64, primitive.A, primitive.DateTime, ...) and callers never share
// memory with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) Collection(name string) Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{name: name}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close(context.Context) error { return nil }

type memoryDoc struct {
	id  primitive.ObjectID
	raw []byte
}

type memoryCollection struct {
	name string
	mu   sync.RWMutex
	docs []memoryDoc
}

func (c *memoryCollection) Find(ctx context.Context, filter bson.M, opts FindOptions) ([]bson.M, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []bson.M{}
	for _, d := range c.docs {
		doc, err := decode(d.raw)
		if err != nil {
			return nil, err
		}
		ok, err := Matches(doc, filter)
		if err != nil {
			return nil, fmt.Errorf("find in %s: %w", c.name, err)
		}
		if ok {
			out = append(out, doc)
		}
	}

	if opts.Sort != "" {
		field, dir := sortKey(opts.Sort)
		sort.SliceStable(out, func(i, j int) bool {
			cmp := compareValues(out[i][field], out[j][field])
			if dir < 0 {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if opts.Limit > 0 && int64(len(out)) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (c *memoryCollection) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	docs, err := c.Find(ctx, filter, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (c *memoryCollection) InsertOne(ctx context.Context, doc bson.M) (primitive.ObjectID, error) {
	id, ok := doc["_id"].(primitive.ObjectID)
	if !ok {
		id = primitive.NewObjectID()
		doc["_id"] = id
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert into %s: %w", c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.docs {
		if d.id == id {
			return primitive.NilObjectID, fmt.Errorf("insert into %s: duplicate _id %s", c.name, id.Hex())
		}
	}
	c.docs = append(c.docs, memoryDoc{id: id, raw: raw})
	return id, nil
}

func (c *memoryCollection) UpdateOne(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if d.id != id {
			continue
		}
		doc, err := decode(d.raw)
		if err != nil {
			return err
		}
		for k, v := range set {
			if k == "_id" {
				continue
			}
			doc[k] = v
		}
		raw, err := bson.Marshal(doc)
		if err != nil {
			return fmt.Errorf("update %s: %w", c.name, err)
		}
		c.docs[i].raw = raw
		return nil
	}
	return ErrNotFound
}

func (c *memoryCollection) DeleteOne(ctx context.Context, id primitive.ObjectID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if d.id == id {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (c *memoryCollection) Count(ctx context.Context, filter bson.M) (int64, error) {
	docs, err := c.Find(ctx, filter, FindOptions{})
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func decode(raw []byte) (bson.M, error) {
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
