// Package memory holds the default in-process Notifier store.
package memory

import (
	"context"
	"sort"
	"sync"

	"feed_notifier/internal/domain"
)

// NotifierStore is an in-memory table of Notifier records keyed by id.
// Every read returns a copy, every write stores a copy, so a record's
// mutable fields are always replaced atomically relative to readers.
type NotifierStore struct {
	mu        sync.RWMutex
	notifiers map[int64]*domain.Notifier
}

func NewNotifierStore() *NotifierStore {
	return &NotifierStore{
		notifiers: make(map[int64]*domain.Notifier),
	}
}

func (s *NotifierStore) Get(_ context.Context, id int64) (*domain.Notifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifiers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return n.Clone(), nil
}

func (s *NotifierStore) Upsert(_ context.Context, n *domain.Notifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifiers[n.ID] = n.Clone()
	return nil
}

func (s *NotifierStore) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notifiers[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.notifiers, id)
	return nil
}

func (s *NotifierStore) List(_ context.Context) ([]domain.Notifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Notifier, 0, len(s.notifiers))
	for _, n := range s.notifiers {
		out = append(out, *n.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
