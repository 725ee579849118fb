package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	defaultCacheTTL = 30 * time.Second
	versionPrefix   = "ver:"
)

// ResponseCache stores rendered JSON responses in the Store under a fixed prefix.
type ResponseCache struct {
	store  Store
	prefix string
	ttl    time.Duration
}

// NewResponseCache builds a cache; ttl <= 0 uses 30 seconds.
func NewResponseCache(store Store, prefix string, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &ResponseCache{store: store, prefix: prefix, ttl: ttl}
}

// GetBytes returns cached bytes for key.
func (c *ResponseCache) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.store.Get(ctx, c.prefix+key)
	if err != nil {
		Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		return nil, false
	}
	return b, ok
}

// SetJSON marshals v and stores it.
func (c *ResponseCache) SetJSON(ctx context.Context, key string, v interface{}) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, c.prefix+key, b, c.ttl); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// Version returns the generation token of key. Every Invalidate of key changes it.
func (c *ResponseCache) Version(ctx context.Context, key string) string {
	if c == nil {
		return ""
	}
	b, _, err := c.store.Get(ctx, c.prefix+versionPrefix+key)
	if err != nil {
		Sugar.Debugf("cache version read failed key=%s err=%v", key, err)
	}
	return string(b)
}

// SetJSONIfCurrent stores v only while key is still at version, the token read before v was built.
// A value that raced with an Invalidate is dropped again.
func (c *ResponseCache) SetJSONIfCurrent(ctx context.Context, key, version string, v interface{}) {
	if c == nil || c.Version(ctx, key) != version {
		return
	}
	c.SetJSON(ctx, key, v)
	if c.Version(ctx, key) != version {
		if err := c.store.Del(ctx, c.prefix+key); err != nil {
			Sugar.Warnf("cache drop stale key=%s err=%v", key, err)
		}
	}
}

// Invalidate bumps the version of the given keys and drops their values.
func (c *ResponseCache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
		if err := c.store.Set(ctx, c.prefix+versionPrefix+k, []byte(uuid.NewString()), 0); err != nil {
			Sugar.Warnf("cache version bump failed key=%s err=%v", k, err)
		}
	}
	if err := c.store.Del(ctx, full...); err != nil {
		Sugar.Warnf("cache invalidate failed keys=%v err=%v", keys, err)
	}
}
