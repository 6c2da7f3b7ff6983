package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "eventdesk/pkg/domain"
	"eventdesk/pkg/idgen"
	"eventdesk/pkg/requestcontext"
)

func TestRecorderAssignsIDAndTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store, idgen.NewSequential())

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	requestID := id.RequestID(uuid.New())
	err := recorder.Record(ctx, Entry{
		RequestID: requestID,
		EventType: EventSubmitted,
		ActorRole: ActorEmployee,
	})
	require.NoError(t, err)

	entries, err := recorder.Query(ctx, Filter{RequestID: requestID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].ID.IsNil())
	assert.Equal(t, now, entries[0].OccurredAt)
}

func TestRecorderKeepsProvidedFields(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store, idgen.NewSequential())

	entryID := id.HistoryEntryID(uuid.New())
	occurredAt := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	requestID := id.RequestID(uuid.New())

	err := recorder.Record(context.Background(), Entry{
		ID:         entryID,
		RequestID:  requestID,
		EventType:  EventApproved,
		ActorRole:  ActorApprover,
		OccurredAt: occurredAt,
	})
	require.NoError(t, err)

	entries, err := recorder.Query(context.Background(), Filter{RequestID: requestID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entryID, entries[0].ID)
	assert.Equal(t, occurredAt, entries[0].OccurredAt)
}

func TestRecorderOffersEntriesToFeedInbox(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store, idgen.NewSequential(), WithFeedInbox(4))

	requestID := id.RequestID(uuid.New())
	err := recorder.Record(context.Background(), Entry{
		RequestID: requestID,
		EventType: EventSubmitted,
		ActorRole: ActorEmployee,
	})
	require.NoError(t, err)

	select {
	case entry := <-recorder.Inbox():
		assert.Equal(t, requestID, entry.RequestID)
	default:
		t.Fatal("expected entry in feed inbox")
	}
}

func TestRecorderDropsFeedCopyWhenInboxFull(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store, idgen.NewSequential(), WithFeedInbox(1))

	requestID := id.RequestID(uuid.New())
	for i := 0; i < 3; i++ {
		err := recorder.Record(context.Background(), Entry{
			RequestID: requestID,
			EventType: EventCommented,
			ActorRole: ActorEmployee,
		})
		require.NoError(t, err)
	}

	// All three persisted even though only one fit the inbox.
	entries, err := recorder.Query(context.Background(), Filter{RequestID: requestID})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Len(t, recorder.inbox, 1)
}

type capturingFeed struct {
	mu        sync.Mutex
	published []Entry
}

func (f *capturingFeed) Publish(_ context.Context, entry Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, entry)
	return nil
}

func (f *capturingFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func TestWorkerPublishesUntilCancelled(t *testing.T) {
	store := NewInMemoryStore()
	recorder := NewRecorder(store, idgen.NewSequential(), WithFeedInbox(8))
	feed := &capturingFeed{}
	worker := NewWorker(recorder.Inbox(), feed, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	requestID := id.RequestID(uuid.New())
	require.NoError(t, recorder.Record(ctx, Entry{RequestID: requestID, EventType: EventSubmitted, ActorRole: ActorEmployee}))
	require.NoError(t, recorder.Record(ctx, Entry{RequestID: requestID, EventType: EventApproved, ActorRole: ActorApprover}))

	require.Eventually(t, func() bool {
		return feed.count() == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
