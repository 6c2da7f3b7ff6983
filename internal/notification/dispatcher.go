package notification

import (
	"context"
	"fmt"
	"log/slog"

	"eventdesk/internal/history"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/idgen"
	"eventdesk/pkg/requestcontext"
)

// HistoryRecorder appends audit entries. Satisfied by *history.Recorder.
type HistoryRecorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Enqueuer hands a created notification to the delivery pipeline. Satisfied
// by *DeliveryQueue.
type Enqueuer interface {
	Enqueue(ctx context.Context, n Notification) error
}

// DispatchInput describes the decided request a notification is about.
type DispatchInput struct {
	RequestID            id.RequestID
	RequestNumber        string
	RecipientID          id.UserID
	RecipientDisplayName string
	Outcome              string
	Comment              string
}

// Dispatcher creates the notification record and its audit entry. The record
// and entry are written through ctx, so a caller inside a transaction gets
// both atomically with the decision. Queueing for delivery is best-effort
// and happens after the record exists.
type Dispatcher struct {
	store    Store
	recorder HistoryRecorder
	ids      idgen.Allocator
	queue    Enqueuer
	logger   *slog.Logger
}

type DispatcherOption func(*Dispatcher)

// WithDeliveryQueue enables handoff to the asynchronous delivery pipeline.
func WithDeliveryQueue(queue Enqueuer) DispatcherOption {
	return func(d *Dispatcher) { d.queue = queue }
}

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

func NewDispatcher(store Store, recorder HistoryRecorder, ids idgen.Allocator, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{store: store, recorder: recorder, ids: ids, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch creates a queued in-app notification for the request's submitter
// and records a notification_sent audit entry.
func (d *Dispatcher) Dispatch(ctx context.Context, in DispatchInput) (Notification, error) {
	n := Notification{
		ID:            id.NotificationID(d.ids.NewID()),
		RecipientID:   in.RecipientID,
		RequestID:     in.RequestID,
		RequestNumber: in.RequestNumber,
		Channel:       ChannelInApp,
		Payload: Payload{
			RequestID: in.RequestID,
			Status:    in.Outcome,
			Comment:   in.Comment,
		},
		Subject:        fmt.Sprintf("Request %s %s", in.RequestNumber, in.Outcome),
		Body:           buildBody(in),
		DeliveryStatus: DeliveryQueued,
		CreatedAt:      requestcontext.Now(ctx),
	}
	if err := d.store.Create(ctx, n); err != nil {
		return Notification{}, fmt.Errorf("create notification: %w", err)
	}

	entry := history.Entry{
		RequestID: in.RequestID,
		EventType: history.EventNotificationSent,
		ActorRole: history.ActorSystem,
		Comment:   fmt.Sprintf("Status notification %s created for %s.", n.ID.String(), in.RecipientDisplayName),
		Metadata: map[string]any{
			"notificationId": n.ID.String(),
			"deliveryStatus": string(n.DeliveryStatus),
		},
	}
	if err := d.recorder.Record(ctx, entry); err != nil {
		return Notification{}, fmt.Errorf("record notification audit entry: %w", err)
	}

	if d.queue != nil {
		if err := d.queue.Enqueue(ctx, n); err != nil {
			d.logger.WarnContext(ctx, "failed to enqueue notification for delivery",
				"notification_id", n.ID.String(), "error", err)
		}
	}
	return n, nil
}

func buildBody(in DispatchInput) string {
	body := fmt.Sprintf("Your event attendance request %s has been %s.", in.RequestNumber, in.Outcome)
	if in.Comment != "" {
		body += " Reviewer comment: " + in.Comment
	}
	return body
}
