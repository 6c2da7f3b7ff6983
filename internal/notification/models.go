// Package notification creates and delivers status notifications for decided
// requests. Records are written atomically with the decision; delivery to the
// recipient happens asynchronously through a queue.
package notification

import (
	"time"

	id "eventdesk/pkg/domain"
)

// Channel is the delivery medium. Only in-app delivery is wired today; email
// and teams are reserved values carried by imported records.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelTeams Channel = "teams"
)

// DeliveryStatus tracks a notification through the delivery pipeline.
type DeliveryStatus string

const (
	DeliveryQueued DeliveryStatus = "queued"
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Payload is the structured content of a notification: the request it is
// about, the status the decision produced, and the reviewer's comment.
// Subject and body on the notification are rendered from it.
type Payload struct {
	RequestID id.RequestID `json:"requestId"`
	Status    string       `json:"status"`
	Comment   string       `json:"comment"`
}

// Notification is one message to a request's submitter about a decision.
type Notification struct {
	ID             id.NotificationID `json:"notificationId"`
	RecipientID    id.UserID         `json:"recipientId"`
	RequestID      id.RequestID      `json:"requestId"`
	RequestNumber  string            `json:"requestNumber"`
	Channel        Channel           `json:"channel"`
	Payload        Payload           `json:"payload"`
	Subject        string            `json:"subject"`
	Body           string            `json:"body"`
	DeliveryStatus DeliveryStatus    `json:"deliveryStatus"`
	CreatedAt      time.Time         `json:"createdAt"`
	SentAt         *time.Time        `json:"sentAt"`
}
