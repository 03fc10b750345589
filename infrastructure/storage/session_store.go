package storage

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/patrickmn/go-cache"

	"spmodel/domain/listmodel"
	"spmodel/infrastructure/repositories"
	"spmodel/logging"
)

// Stats summarizes the contents of a storage backend.
type Stats struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
	// Disabled holds the reason recorded when the backend was switched off
	// after a quota error.
	Disabled string `json:"disabled,omitempty"`
}

// HumanBytes formats Bytes for display.
func (s Stats) HumanBytes() string {
	return humanize.Bytes(uint64(s.Bytes))
}

// SessionStore keeps snapshots in memory for the life of the process, or
// until ttl passes without a write. A zero limit means unlimited.
type SessionStore struct {
	mu     sync.Mutex
	items  *cache.Cache
	limit  int64
	logger *logging.Logger
}

var _ listmodel.Storage = (*SessionStore)(nil)

func NewSessionStore(ttl time.Duration, limit int64) *SessionStore {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &SessionStore{
		items:  cache.New(ttl, 10*time.Minute),
		limit:  limit,
		logger: logging.Default().WithComponent("session_store"),
	}
}

// usage sums the unexpired entries, skipping key.
func (s *SessionStore) usage(skip string) (int, int64) {
	var total int64
	items := s.items.Items()
	for k, item := range items {
		if k == skip {
			continue
		}
		if b, ok := item.Object.([]byte); ok {
			total += int64(len(b))
		}
	}
	return len(items), total
}

func (s *SessionStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	return v.([]byte), true, nil
}

func (s *SessionStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, others := s.usage(key)
	needed := others + int64(len(value))
	if s.limit > 0 && needed > s.limit {
		return &repositories.QuotaError{Scope: "session", Limit: s.limit, Needed: needed}
	}

	stored := append([]byte(nil), value...)
	s.items.SetDefault(key, stored)
	s.logger.Storage("Snapshot cached", "key", key, "size", humanize.Bytes(uint64(len(value))))
	return nil
}

func (s *SessionStore) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}

func (s *SessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.items.ItemCount()
	s.items.Flush()
	s.logger.Storage("Storage cleared", "scope", "session", "entries", n)
	return nil
}

func (s *SessionStore) Stats(_ context.Context) (Stats, error) {
	count, total := s.usage("")
	return Stats{Backend: "session", Entries: count, Bytes: total}, nil
}
