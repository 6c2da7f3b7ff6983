// Package request persists attendance approval requests. The in-memory store
// backs tests and single-node development; the PostgreSQL store is the
// production implementation.
package request

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"eventdesk/internal/approval/models"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
)

// Request numbers are human-facing and assigned from a monotonic sequence
// starting at EA-1001.
const firstRequestNumber = 1001

type InMemory struct {
	mu         sync.RWMutex
	requests   map[id.RequestID]*models.Request
	nextNumber int
}

func NewInMemory() *InMemory {
	return &InMemory{
		requests:   make(map[id.RequestID]*models.Request),
		nextNumber: firstRequestNumber,
	}
}

// Create assigns the next request number and persists the request.
func (s *InMemory) Create(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	req.RequestNumber = fmt.Sprintf("EA-%d", s.nextNumber)
	s.nextNumber++
	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *req
	return &clone, nil
}

// List returns requests matching the filter, most recently submitted first.
func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]*models.Request, 0, len(s.requests))
	for _, req := range s.requests {
		if !filter.SubmitterID.IsNil() && req.SubmitterID != filter.SubmitterID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		clone := *req
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

// Execute runs validate then mutate on the stored request while holding the
// store lock, so no concurrent Execute can interleave between the check and
// the write. Returns the mutated request, or the validation error unchanged.
func (s *InMemory) Execute(
	_ context.Context,
	requestID id.RequestID,
	validate func(*models.Request) error,
	mutate func(*models.Request),
) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	mutate(req)
	clone := *req
	return &clone, nil
}
