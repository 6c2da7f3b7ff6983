package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{notifications: make(map[id.NotificationID]Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[n.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.notifications[n.ID] = n
	return nil
}

// ListByRecipient returns the recipient's notifications, newest first.
func (s *InMemoryStore) ListByRecipient(_ context.Context, recipientID id.UserID) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var listed []Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			listed = append(listed, n)
		}
	}
	sort.Slice(listed, func(i, j int) bool {
		return listed[i].CreatedAt.After(listed[j].CreatedAt)
	})
	return listed, nil
}

func (s *InMemoryStore) UpdateDeliveryStatus(_ context.Context, notificationID id.NotificationID, status DeliveryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	n.DeliveryStatus = status
	if status == DeliverySent {
		now := time.Now()
		n.SentAt = &now
	}
	s.notifications[notificationID] = n
	return nil
}
