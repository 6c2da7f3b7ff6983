package history

import (
	"context"
	"sort"
	"sync"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries []sequencedEntry
	nextSeq uint64
}

// sequencedEntry pairs an entry with its insertion order so entries sharing
// an OccurredAt timestamp sort deterministically.
type sequencedEntry struct {
	Entry
	seq uint64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, sequencedEntry{Entry: entry, seq: s.nextSeq})
	s.nextSeq++
	return nil
}

// Query returns matching entries in chronological order, oldest first.
func (s *InMemoryStore) Query(_ context.Context, filter Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []sequencedEntry
	for _, e := range s.entries {
		if filter.matches(e.Entry) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].seq < matched[j].seq
		}
		return matched[i].OccurredAt.Before(matched[j].OccurredAt)
	})
	result := make([]Entry, len(matched))
	for i, e := range matched {
		result[i] = e.Entry
	}
	return result, nil
}
