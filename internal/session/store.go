package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store holds per-visitor session values, JSON-encoded under a key.
// A visitor's values are only ever touched by that visitor's requests.
type Store interface {
	// Get decodes the value stored under key into dst. It reports false when nothing is stored.
	Get(ctx context.Context, sessionID, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, sessionID, key string, value interface{}) error
	Unset(ctx context.Context, sessionID, key string) error
}

// NewID returns a fresh random session identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an identifier issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// RedisStore keeps session values in Redis with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func redisKey(sessionID, key string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, key)
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string, dst interface{}) (bool, error) {
	k := redisKey(sessionID, key)
	data, err := s.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read session key %s: %w", k, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode session key %s: %w", k, err)
	}
	// Reading keeps the session alive.
	s.rdb.Expire(ctx, k, s.ttl)
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode session value %s: %w", key, err)
	}
	k := redisKey(sessionID, key)
	if err := s.rdb.Set(ctx, k, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session key %s: %w", k, err)
	}
	return nil
}

func (s *RedisStore) Unset(ctx context.Context, sessionID, key string) error {
	k := redisKey(sessionID, key)
	if err := s.rdb.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("failed to delete session key %s: %w", k, err)
	}
	return nil
}

// MemoryStore is a process-local Store. Values never expire.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID, key string, dst interface{}) (bool, error) {
	s.mu.RLock()
	data, ok := s.values[redisKey(sessionID, key)]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode session value %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode session value %s: %w", key, err)
	}
	s.mu.Lock()
	s.values[redisKey(sessionID, key)] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Unset(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	delete(s.values, redisKey(sessionID, key))
	s.mu.Unlock()
	return nil
}
