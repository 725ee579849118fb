package utils

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const stateKeyPrefix = "oauth:state:"

// StateStore keeps single-use OAuth state tokens to mitigate CSRF on the callback.
type StateStore struct {
	store Store
	ttl   time.Duration
}

// NewStateStore uses a 10 minute TTL when ttl <= 0.
func NewStateStore(store Store, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateStore{store: store, ttl: ttl}
}

// New generates and saves a fresh state token.
func (s *StateStore) New(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.Save(ctx, state); err != nil {
		return "", err
	}
	return state, nil
}

// Save records a state token.
func (s *StateStore) Save(ctx context.Context, state string) error {
	return s.store.Set(ctx, stateKeyPrefix+state, []byte("1"), s.ttl)
}

// Consume validates and removes a state token. Unknown, expired or reused states return false.
func (s *StateStore) Consume(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	_, ok, err := s.store.GetDel(ctx, stateKeyPrefix+state)
	if err != nil {
		Sugar.Warnf("oauth state lookup failed: %v", err)
		return false
	}
	return ok
}
