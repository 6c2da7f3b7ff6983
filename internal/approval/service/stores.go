package service

import (
	"context"

	"eventdesk/internal/approval/models"
	"eventdesk/internal/history"
	"eventdesk/internal/notification"
	id "eventdesk/pkg/domain"
)

//go:generate mockgen -source=stores.go -destination=mocks/stores_mock.go -package=mocks

// RequestStore persists requests. Execute must hold the store's lock (mutex
// or row lock) across both callbacks so no concurrent Execute interleaves
// between validation and mutation.
type RequestStore interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Request, error)
	Execute(ctx context.Context, requestID id.RequestID,
		validate func(*models.Request) error,
		mutate func(*models.Request)) (*models.Request, error)
}

// DecisionStore persists immutable decision records.
type DecisionStore interface {
	Append(ctx context.Context, d models.Decision) error
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]models.Decision, error)
	LatestByRequest(ctx context.Context, requestIDs []id.RequestID) (map[id.RequestID]models.Decision, error)
}

// HistoryRecorder appends audit entries and serves history queries.
type HistoryRecorder interface {
	Record(ctx context.Context, entry history.Entry) error
	Query(ctx context.Context, filter history.Filter) ([]history.Entry, error)
}

// NotificationDispatcher creates the status notification for a decided
// request, including its notification_sent audit entry.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, in notification.DispatchInput) (notification.Notification, error)
}
