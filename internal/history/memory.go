package history

import (
	"strings"
	"sync"
	"time"
)

// MemoryStore is a concurrency-safe in-memory Store. Contents are lost on
// restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	opts    options
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{opts: o}
}

func (s *MemoryStore) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	sortNewestFirst(out)
	return out
}

func (s *MemoryStore) Record(name string) (Entry, error) {
	if strings.TrimSpace(name) == "" {
		return Entry{}, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, e := applyRecord(s.entries, name, s.opts.now(), s.opts.newID)
	s.entries = entries
	s.opts.observer(len(s.entries))
	return e, nil
}

func (s *MemoryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = applyRemove(s.entries, id)
	s.opts.observer(len(s.entries))
	return nil
}

func (s *MemoryStore) Prune(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	s.entries, removed = applyPrune(s.entries, s.opts.now().Add(-maxAge))
	if removed > 0 {
		s.opts.observer(len(s.entries))
	}
	return removed, nil
}
