package history

import (
	"context"
	"log/slog"

	id "eventdesk/pkg/domain"
	"eventdesk/pkg/idgen"
	"eventdesk/pkg/requestcontext"
)

// Recorder is the single write path into the audit trail. It persists each
// entry through the store and offers it to the feed inbox for downstream
// publishing. Persistence is synchronous so an entry appended inside a
// transaction commits with its state change; feed delivery is best-effort
// and never blocks the caller.
type Recorder struct {
	store  Store
	ids    idgen.Allocator
	logger *slog.Logger
	inbox  chan Entry
}

type RecorderOption func(*Recorder)

func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

// WithFeedInbox buffers recorded entries for a feed Worker to publish.
func WithFeedInbox(size int) RecorderOption {
	return func(r *Recorder) { r.inbox = make(chan Entry, size) }
}

func NewRecorder(store Store, ids idgen.Allocator, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, ids: ids, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record assigns an id and timestamp if missing, persists the entry, and
// offers it to the feed inbox. A full inbox drops the feed copy with a log
// line; the persisted record is the source of truth.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if entry.ID.IsNil() {
		entry.ID = id.HistoryEntryID(r.ids.NewID())
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = requestcontext.Now(ctx)
	}
	if err := r.store.Append(ctx, entry); err != nil {
		return err
	}
	if r.inbox != nil {
		select {
		case r.inbox <- entry:
		default:
			r.logger.WarnContext(ctx, "history feed inbox full, dropping entry",
				"history_entry_id", entry.ID.String(),
				"event_type", string(entry.EventType))
		}
	}
	return nil
}

// Query returns entries matching the filter in chronological order.
func (r *Recorder) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	return r.store.Query(ctx, filter)
}

// Inbox exposes the feed channel for a Worker. Nil when no inbox was
// configured.
func (r *Recorder) Inbox() <-chan Entry {
	return r.inbox
}
