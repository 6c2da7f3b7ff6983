// Package decision persists approve/reject records. Decisions are immutable
// once appended.
package decision

import (
	"context"
	"sort"
	"sync"

	"eventdesk/internal/approval/models"
	id "eventdesk/pkg/domain"
)

type InMemory struct {
	mu        sync.RWMutex
	decisions map[id.RequestID][]models.Decision
}

func NewInMemory() *InMemory {
	return &InMemory{decisions: make(map[id.RequestID][]models.Decision)}
}

func (s *InMemory) Append(_ context.Context, d models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[d.RequestID] = append(s.decisions[d.RequestID], d)
	return nil
}

// ListByRequest returns decisions for a request, most recent first.
func (s *InMemory) ListByRequest(_ context.Context, requestID id.RequestID) ([]models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listed := append([]models.Decision{}, s.decisions[requestID]...)
	sort.Slice(listed, func(i, j int) bool {
		return listed[i].DecidedAt.After(listed[j].DecidedAt)
	})
	return listed, nil
}

// LatestByRequest returns the most recent decision per request for the given
// set, for joining decision comments into list projections. Requests with no
// decision are absent from the result.
func (s *InMemory) LatestByRequest(_ context.Context, requestIDs []id.RequestID) (map[id.RequestID]models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := make(map[id.RequestID]models.Decision, len(requestIDs))
	for _, requestID := range requestIDs {
		for _, d := range s.decisions[requestID] {
			current, seen := latest[requestID]
			if !seen || d.DecidedAt.After(current.DecidedAt) {
				latest[requestID] = d
			}
		}
	}
	return latest, nil
}
