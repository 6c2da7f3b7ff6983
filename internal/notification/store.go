package notification

import (
	"context"

	id "eventdesk/pkg/domain"
)

// Store persists notification records.
type Store interface {
	Create(ctx context.Context, n Notification) error
	ListByRecipient(ctx context.Context, recipientID id.UserID) ([]Notification, error)
	UpdateDeliveryStatus(ctx context.Context, notificationID id.NotificationID, status DeliveryStatus) error
}
