package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist remembers revoked token IDs until the tokens would have expired.
type Denylist interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	Revoked(ctx context.Context, id string) (bool, error)
}

// Revocations is the process-wide denylist. main swaps in a Redis-backed one
// when Redis is configured.
var Revocations Denylist = NewMemoryDenylist()

type memoryDenylist struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func NewMemoryDenylist() Denylist {
	return &memoryDenylist{ids: map[string]time.Time{}}
}

func (d *memoryDenylist) Revoke(_ context.Context, id string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	for k, exp := range d.ids {
		if now.After(exp) {
			delete(d.ids, k)
		}
	}
	d.ids[id] = until
	return nil
}

func (d *memoryDenylist) Revoked(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.ids[id]
	return ok && time.Now().Before(exp), nil
}

type redisDenylist struct {
	client *redis.Client
}

// NewRedisDenylist stores revocations as expiring keys so every instance
// sees them.
func NewRedisDenylist(client *redis.Client) Denylist {
	return &redisDenylist{client: client}
}

func (d *redisDenylist) Revoke(ctx context.Context, id string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, "auth:revoked:"+id, "1", ttl).Err()
}

func (d *redisDenylist) Revoked(ctx context.Context, id string) (bool, error) {
	err := d.client.Get(ctx, "auth:revoked:"+id).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return err == nil, err
}
