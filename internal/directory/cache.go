package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careportal/pkg/logging"
)

// CachedSource serves a collection from Redis and falls back to the wrapped
// source on a miss. Redis failures degrade to the wrapped source; they never
// fail the load on their own.
type CachedSource[T any] struct {
	inner  Source[T]
	redis  *redis.Client
	key    string
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedSource[T any](inner Source[T], client *redis.Client, collection string, ttl time.Duration, logger *logging.Logger) *CachedSource[T] {
	if inner == nil {
		panic("directory: inner source required")
	}
	if client == nil {
		panic("directory: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedSource[T]{
		inner:  inner,
		redis:  client,
		key:    cacheKey(collection),
		ttl:    ttl,
		logger: logger,
	}
}

func (s *CachedSource[T]) Load(ctx context.Context) ([]T, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	switch {
	case err == nil:
		var items []T
		jerr := json.Unmarshal(data, &items)
		if jerr == nil {
			return items, nil
		}
		s.logger.Warn("directory cache entry undecodable", "key", s.key, "error", jerr)
	case errors.Is(err, redis.Nil):
	default:
		s.logger.Warn("directory cache read failed", "key", s.key, "error", err)
	}

	items, err := s.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("directory: encode cache entry: %w", err)
	}
	if err := s.redis.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		s.logger.Warn("directory cache write failed", "key", s.key, "error", err)
	}
	return items, nil
}

// Invalidate drops the cached entry so the next Load hits the wrapped source.
func (s *CachedSource[T]) Invalidate(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("directory: invalidate %s: %w", s.key, err)
	}
	return nil
}

func cacheKey(collection string) string {
	return fmt.Sprintf("directory:%s", collection)
}
