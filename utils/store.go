package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the key-value backend for sessions, oauth state and cached responses.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns ok=false when the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// GetDel atomically reads and removes a key.
	GetDel(ctx context.Context, key string) (value []byte, ok bool, err error)
	Del(ctx context.Context, keys ...string) error
}

// RedisStore keeps values in Redis with per-key TTLs.
type RedisStore struct {
	rc *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rc *redis.Client) *RedisStore {
	return &RedisStore{rc: rc}
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rc.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rc.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) GetDel(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rc.GetDel(ctx, key).Bytes()
	if err == nil {
		return b, true, nil
	}
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	// Servers older than 6.2 lack GETDEL
	script := `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`
	res, err := s.rc.Eval(ctx, script, []string{key}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	str, _ := res.(string)
	return []byte(str), true, nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rc.Del(ctx, keys...).Err()
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Expired entries are dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memEntry{}, now: time.Now}
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.lookupLocked(key)
	return v, ok, nil
}

func (s *MemoryStore) GetDel(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.lookupLocked(key)
	delete(s.entries, key)
	return v, ok, nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) lookupLocked(key string) ([]byte, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}
