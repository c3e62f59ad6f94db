package draft

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	appLog "weekendbot/internal/log"
	"weekendbot/internal/model"
)

// RedisStore keeps the draft set as one JSON string value.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore returns a store using client. An empty key means DefaultKey.
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: key}
}

// NewRedisClient parses a redis:// URL, falling back to a plain address.
func NewRedisClient(url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	return redis.NewClient(opts)
}

// Ping checks the connection.
func Ping(ctx context.Context, client redis.Cmdable) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("draft: redis ping: %w", err)
	}
	return nil
}

// Save overwrites the key without expiry.
func (s *RedisStore) Save(ctx context.Context, events []model.Event) error {
	data, err := encode(events)
	if err != nil {
		return &PersistenceError{Op: "save", Key: s.key, Err: err}
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return &PersistenceError{Op: "save", Key: s.key, Err: err}
	}
	appLog.Info("draft saved", "backend", "redis", "key", s.key, "event_count", len(events))
	return nil
}

// Load reads the key, or returns an empty list if it does not exist.
func (s *RedisStore) Load(ctx context.Context) ([]model.Event, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.Event{}, nil
		}
		return nil, &PersistenceError{Op: "load", Key: s.key, Err: err}
	}

	events, err := decode(data)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Key: s.key, Err: err}
	}
	appLog.Info("draft loaded", "backend", "redis", "key", s.key, "event_count", len(events))
	return events, nil
}

// Clear deletes the key; deleting a missing key is not an error.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return &PersistenceError{Op: "clear", Key: s.key, Err: err}
	}
	appLog.Info("draft cleared", "backend", "redis", "key", s.key)
	return nil
}
