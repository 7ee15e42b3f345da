package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rodetes-party/rodetes/internal/apperr"
)

// ErrSessionNotFound is returned for unknown or expired sessions.  It
// matches apperr.ErrNotFound.
var ErrSessionNotFound = fmt.Errorf("scan session %w", apperr.ErrNotFound)

// SessionStore keeps sessions between the scan and the operator's decision.
// Take removes the session atomically so two confirms of the same session
// cannot both proceed.
type SessionStore interface {
	Put(ctx context.Context, s Session, ttl time.Duration) error
	Take(ctx context.Context, id string) (Session, error)
}

// RedisSessions stores sessions as JSON under prefix+id with a TTL.
type RedisSessions struct {
	Client *redis.Client
	Prefix string
}

func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{Client: client, Prefix: "rodetes:scan:"}
}

func (r *RedisSessions) Put(ctx context.Context, s Session, ttl time.Duration) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.Client.Set(ctx, r.Prefix+s.ID, b, ttl).Err()
}

func (r *RedisSessions) Take(ctx context.Context, id string) (Session, error) {
	b, err := r.Client.GetDel(ctx, r.Prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return s, nil
}

// MemorySessions is the single-process fallback used when Redis is not
// configured.  Expired entries are dropped lazily.
type MemorySessions struct {
	mu  sync.Mutex
	m   map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	s       Session
	expires time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{m: map[string]memEntry{}, now: time.Now}
}

func (m *MemorySessions) Put(_ context.Context, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, e := range m.m {
		if now.After(e.expires) {
			delete(m.m, id)
		}
	}
	m.m[s.ID] = memEntry{s: s, expires: now.Add(ttl)}
	return nil
}

func (m *MemorySessions) Take(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.m[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	delete(m.m, id)
	if m.now().After(e.expires) {
		return Session{}, ErrSessionNotFound
	}
	return e.s, nil
}
