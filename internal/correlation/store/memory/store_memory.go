package memory

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"kycbridge/internal/correlation/models"
	"kycbridge/pkg/platform/sentinel"
)

// DefaultMaxEntries bounds the number of records kept in memory.
const DefaultMaxEntries = 100_000

// InMemoryStore keeps correlation state in process. Suitable for single
// instance deployments; state is lost on restart.
type InMemoryStore struct {
	mu         sync.Mutex
	records    map[string]*list.Element
	order      *list.List // *models.Record, least recently written first
	handled    map[string]time.Time
	maxEntries int
	clock      func() time.Time
}

type Option func(*InMemoryStore)

// WithMaxEntries bounds the record map; the least recently written record is
// evicted first.
func WithMaxEntries(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		records:    make(map[string]*list.Element),
		order:      list.New(),
		handled:    make(map[string]time.Time),
		maxEntries: DefaultMaxEntries,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Put(_ context.Context, rec *models.Record, ttl time.Duration) error {
	if rec == nil || rec.Token == "" {
		return fmt.Errorf("token is required: %w", sentinel.ErrInvalidState)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock()
	}
	stored.ExpiresAt = stored.CreatedAt.Add(ttl)
	if el, exists := s.records[stored.Token]; exists {
		el.Value = &stored
		s.order.MoveToBack(el)
		return nil
	}
	if len(s.records) >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.records[stored.Token] = s.order.PushBack(&stored)
	return nil
}

func (s *InMemoryStore) AttachSession(_ context.Context, token, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.records[token]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec := el.Value.(*models.Record)
	if rec.Expired(s.clock()) {
		return sentinel.ErrNotFound
	}
	rec.SessionID = sessionID
	return nil
}

func (s *InMemoryStore) Resolve(_ context.Context, token string) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.records[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec := el.Value.(*models.Record)
	if rec.Expired(s.clock()) {
		s.removeLocked(token, el)
		return nil, sentinel.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (s *InMemoryStore) MarkHandled(_ context.Context, key models.HandledKey, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	k := key.String()
	if expiresAt, ok := s.handled[k]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.handled[k] = now.Add(ttl)
	return true, nil
}

func (s *InMemoryStore) ReleaseHandled(_ context.Context, key models.HandledKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handled, key.String())
	return nil
}

func (s *InMemoryStore) Purge(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, el := range s.records {
		if el.Value.(*models.Record).Expired(now) {
			s.removeLocked(token, el)
			removed++
		}
	}
	for k, expiresAt := range s.handled {
		if !now.Before(expiresAt) {
			delete(s.handled, k)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) Health(context.Context) error {
	return nil
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *InMemoryStore) evictOldestLocked() {
	if el := s.order.Front(); el != nil {
		s.removeLocked(el.Value.(*models.Record).Token, el)
	}
}

func (s *InMemoryStore) removeLocked(token string, el *list.Element) {
	s.order.Remove(el)
	delete(s.records, token)
}
