package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// entityTTL bounds how long mock entities survive in Redis. Mock data is
// throwaway; an hour covers any realistic test run.
const entityTTL = time.Hour

// RedisStore keeps entities in Redis under "{entity_type}.{id}" keys so
// multiple server instances can share state.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Get implements EntityStore.
func (s *RedisStore) Get(ctx context.Context, entityType, id string) (*Entity, error) {
	raw, err := s.client.Get(ctx, key(entityType, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var e Entity
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("corrupt entity %s.%s: %w", entityType, id, err)
	}
	return &e, nil
}

// Put implements EntityStore.
func (s *RedisStore) Put(ctx context.Context, e *Entity) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}
	if err := s.client.Set(ctx, key(e.EntityType, e.ID), raw, entityTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete implements EntityStore.
func (s *RedisStore) Delete(ctx context.Context, entityType, id string) error {
	n, err := s.client.Del(ctx, key(entityType, id)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements EntityStore.
func (s *RedisStore) List(ctx context.Context, entityType string) ([]*Entity, error) {
	var out []*Entity
	iter := s.client.Scan(ctx, 0, entityType+".*", 0).Iterator()
	for iter.Next(ctx) {
		e, err := s.Get(ctx, entityType, iter.Val()[len(entityType)+1:])
		if errors.Is(err, ErrNotFound) {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

// Flush implements EntityStore.
func (s *RedisStore) Flush(ctx context.Context) error {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close implements EntityStore.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
