package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoSession means the token was valid but its server-side record is gone (logged out or expired).
var ErrNoSession = errors.New("session not found")

const sessionKeyPrefix = "session:"

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// SessionData is the server-side session record. UserID is zero for anonymous sessions
// that only carry flashes.
type SessionData struct {
	ID       string  `json:"id"`
	UserID   uint    `json:"user_id,omitempty"`
	Email    string  `json:"email,omitempty"`
	Name     string  `json:"name,omitempty"`
	Nickname string  `json:"nickname,omitempty"`
	Picture  string  `json:"picture,omitempty"`
	Role     string  `json:"role,omitempty"`
	Flashes  []Flash `json:"flashes,omitempty"`
}

// Authenticated reports whether the session belongs to a logged-in user.
func (s *SessionData) Authenticated() bool {
	return s != nil && s.UserID != 0 && s.Email != ""
}

// IsAdmin reports whether the session user has the Admin role.
func (s *SessionData) IsAdmin() bool {
	return s.Authenticated() && s.Role == "Admin"
}

// AddFlash queues a message for the next page render.
func (s *SessionData) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
}

// PopFlashes returns and clears queued messages.
func (s *SessionData) PopFlashes() []Flash {
	if s == nil {
		return nil
	}
	out := s.Flashes
	s.Flashes = nil
	return out
}

// SessionManager keeps sessions in a Store and hands clients a signed token with the session id.
// Destroying the record revokes the token even before it expires.
type SessionManager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager builds a manager; ttl <= 0 defaults to 24h.
func NewSessionManager(store Store, secret string, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of tokens and records.
func (m *SessionManager) TTL() time.Duration { return m.ttl }

// Create assigns a fresh id to data, persists it and returns the signed token.
func (m *SessionManager) Create(ctx context.Context, data *SessionData) (string, error) {
	data.ID = uuid.NewString()
	if err := m.Save(ctx, data); err != nil {
		return "", err
	}
	token, err := signSessionToken(m.secret, data.ID, m.now(), m.ttl)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Load resolves a token to its session record.
func (m *SessionManager) Load(ctx context.Context, token string) (*SessionData, error) {
	id, err := parseSessionToken(m.secret, token)
	if err != nil {
		return nil, err
	}
	raw, ok, err := m.store.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, ErrNoSession
	}
	var data SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	data.ID = id
	return &data, nil
}

// Save writes the record back, refreshing its TTL.
func (m *SessionManager) Save(ctx context.Context, data *SessionData) error {
	if data.ID == "" {
		return errors.New("session has no id")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, sessionKeyPrefix+data.ID, raw, m.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Destroy removes the record; tokens pointing at it stop resolving.
func (m *SessionManager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Del(ctx, sessionKeyPrefix+id)
}
