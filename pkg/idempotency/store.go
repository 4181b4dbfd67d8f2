// Package idempotency provides redis-backed request deduplication: a
// caller-supplied key lets a receiver drop retried requests that would
// otherwise double-apply an effect.
package idempotency

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Header is the inbound HTTP header carrying the client's idempotency key.
const Header = "Idempotency-Key"

// KeyFromRequest extracts the idempotency key from an HTTP request, empty
// if the client sent none.
func KeyFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// MessageKey identifies a kafka message for consumer-side dedup.
func (s *Store) MessageKey(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:msg:%s:%d:%d", topic, partition, offset)
}

// Seen reports whether the key was already recorded, without recording it.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the key. Returns false if another caller got there first.
func (s *Store) Mark(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
}

// Forget drops a recorded key, making it claimable again.
func (s *Store) Forget(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
