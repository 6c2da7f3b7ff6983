// Package history is the append-only audit trail for approval requests.
// Every state change, conflict, and notification lands here as an Entry;
// nothing in the system updates or deletes one once written.
package history

import (
	"time"

	id "eventdesk/pkg/domain"
)

// EventType classifies what an entry records.
type EventType string

const (
	EventSubmitted        EventType = "submitted"
	EventApproved         EventType = "approved"
	EventRejected         EventType = "rejected"
	EventCommented        EventType = "commented"
	EventNotificationSent EventType = "notification_sent"
	EventStaleDetected    EventType = "stale_detected"
)

func (e EventType) Valid() bool {
	switch e {
	case EventSubmitted, EventApproved, EventRejected, EventCommented,
		EventNotificationSent, EventStaleDetected:
		return true
	}
	return false
}

// ActorRole records in what capacity the actor acted. System entries
// (conflict detection, notification bookkeeping) use ActorSystem.
type ActorRole string

const (
	ActorEmployee ActorRole = "employee"
	ActorApprover ActorRole = "approver"
	ActorSystem   ActorRole = "system"
)

// Entry is one immutable audit record.
type Entry struct {
	ID               id.HistoryEntryID `json:"historyEntryId"`
	RequestID        id.RequestID      `json:"requestId"`
	EventType        EventType         `json:"eventType"`
	ActorID          id.UserID         `json:"actorId"`
	ActorDisplayName string            `json:"actorDisplayName"`
	ActorRole        ActorRole         `json:"actorRole"`
	Comment          string            `json:"comment,omitempty"`
	Metadata         map[string]any    `json:"metadata,omitempty"`
	OccurredAt       time.Time         `json:"occurredAt"`
}

// Filter narrows a history query. All set fields must match (conjunction);
// zero values mean "no constraint". From and To are inclusive bounds on
// OccurredAt.
type Filter struct {
	RequestID  id.RequestID
	EventTypes []EventType
	From       *time.Time
	To         *time.Time
}

func (f Filter) matches(e Entry) bool {
	if !f.RequestID.IsNil() && e.RequestID != f.RequestID {
		return false
	}
	if len(f.EventTypes) > 0 {
		found := false
		for _, et := range f.EventTypes {
			if e.EventType == et {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && e.OccurredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.OccurredAt.After(*f.To) {
		return false
	}
	return true
}
