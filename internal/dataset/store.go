package dataset

import (
	"sync"
	"time"

	"review-insights-go/internal/types"
)

// Store holds the currently loaded feedback records.
type Store struct {
	mu       sync.RWMutex
	items    []types.FeedbackItem
	loadedAt time.Time
}

func NewStore(items []types.FeedbackItem) *Store {
	s := &Store{}
	s.Replace(items)
	return s
}

// Replace swaps in a new record set.
func (s *Store) Replace(items []types.FeedbackItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.loadedAt = time.Now()
}

// Items returns a copy safe to retain.
func (s *Store) Items() []types.FeedbackItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.FeedbackItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
