package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Dequeuer pops queued notifications. Satisfied by *DeliveryQueue.
type Dequeuer interface {
	Dequeue(ctx context.Context, timeout time.Duration) (Notification, bool, error)
}

// DeliveryWorker drains the delivery queue and marks notifications sent.
// In-app delivery is just marking the record visible; channels needing a
// real send would slot in here.
type DeliveryWorker struct {
	queue       Dequeuer
	store       Store
	logger      *slog.Logger
	popTimeout  time.Duration
	retryOnFail time.Duration
}

func NewDeliveryWorker(queue Dequeuer, store Store, logger *slog.Logger) *DeliveryWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryWorker{
		queue:       queue,
		store:       store,
		logger:      logger,
		popTimeout:  5 * time.Second,
		retryOnFail: time.Second,
	}
}

func (w *DeliveryWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, ok, err := w.queue.Dequeue(ctx, w.popTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			w.logger.ErrorContext(ctx, "dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.retryOnFail):
			}
			continue
		}
		if !ok {
			continue
		}

		if err := w.store.UpdateDeliveryStatus(ctx, n.ID, DeliverySent); err != nil {
			w.logger.ErrorContext(ctx, "failed to mark notification sent",
				"notification_id", n.ID.String(), "error", err)
			continue
		}
		w.logger.InfoContext(ctx, "notification delivered",
			"notification_id", n.ID.String(),
			"recipient_id", n.RecipientID.String())
	}
}
