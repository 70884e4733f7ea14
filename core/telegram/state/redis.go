package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON values in Redis so conversations
// survive restarts. A positive ttl is refreshed on every Save.
type RedisStore[T any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed Store. Keys are prefix + user id.
func NewRedisStore[T any](client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore[T] {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisStore[T]{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore[T]) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

// Load fetches and decodes the user's session.
func (r *RedisStore[T]) Load(ctx context.Context, userID int64) (T, bool, error) {
	var session T
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return session, false, nil
	}
	if err != nil {
		return session, false, fmt.Errorf("redis get session: %w", err)
	}
	if err := json.Unmarshal(raw, &session); err != nil {
		return session, false, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return session, true, nil
}

// Save encodes and stores the user's session.
func (r *RedisStore[T]) Save(ctx context.Context, userID int64, session T) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete removes the user's session.
func (r *RedisStore[T]) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *RedisStore[T]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
