package history

import (
	"context"
	"log/slog"
)

// FeedPublisher pushes history entries to an external feed (Kafka in
// production).
type FeedPublisher interface {
	Publish(ctx context.Context, entry Entry) error
}

// Worker consumes recorded entries from the recorder's inbox and publishes
// them to the feed. Publish failures are logged and skipped; the audit trail
// in the store remains authoritative.
type Worker struct {
	inbox  <-chan Entry
	feed   FeedPublisher
	logger *slog.Logger
}

func NewWorker(inbox <-chan Entry, feed FeedPublisher, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{inbox: inbox, feed: feed, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			if err := w.feed.Publish(ctx, entry); err != nil {
				w.logger.ErrorContext(ctx, "failed to publish history entry to feed",
					"history_entry_id", entry.ID.String(),
					"event_type", string(entry.EventType),
					"error", err)
			}
		}
	}
}
