package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps sessions as JSON values with a sliding TTL.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("booking: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("careportal.internal.booking.store"),
	}
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	ctx, span := s.tracer.Start(ctx, "booking.store.save")
	defer span.End()

	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: encode session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: persist session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "booking.store.get")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("booking: load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, sessionKey(id), submitKey(id)).Err(); err != nil {
		return fmt.Errorf("booking: delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) ClaimSubmit(ctx context.Context, id string) (bool, error) {
	ok, err := s.redis.SetNX(ctx, submitKey(id), time.Now().UTC().Format(time.RFC3339Nano), submitClaimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("booking: claim submit: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) ReleaseSubmit(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, submitKey(id)).Err(); err != nil {
		return fmt.Errorf("booking: release submit: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("booking:session:%s", id)
}

func submitKey(id string) string {
	return fmt.Sprintf("booking:submit:%s", id)
}
