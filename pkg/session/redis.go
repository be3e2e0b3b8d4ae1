package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix prefixes every session key.
const RedisKeyPrefix = "jira-stub:session:"

// ErrInvalidSession indicates a stored session that cannot be decoded.
var ErrInvalidSession = errors.New("invalid session entry")

// RedisStore keeps sessions in Redis so several stub instances can share them.
// Keys expire together with their session.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a session store with Redis backend.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
	}
}

func redisKey(id string) string {
	return RedisKeyPrefix + id
}

// Save stores s with a TTL matching its expiry. Expired sessions are not stored.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return fmt.Errorf("session cannot be nil")
	}

	ttl := s.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		storeErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := r.redis.Set(ctx, redisKey(s.ID), data, ttl).Err(); err != nil {
		storeErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get retrieves a session by id.
// Returns ErrSessionNotFound if the key doesn't exist or the session is expired.
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.redis.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		storeErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		storeErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if s.IsExpired() {
		_ = r.Delete(ctx, id)
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// Delete removes a session. Returns ErrSessionNotFound if nothing was deleted.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.redis.Del(ctx, redisKey(id)).Result()
	if err != nil {
		storeErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
