package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventdesk/internal/approval/models"
	decisionstore "eventdesk/internal/approval/store/decision"
	requeststore "eventdesk/internal/approval/store/request"
	"eventdesk/internal/history"
	"eventdesk/internal/notification"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/idgen"
	"eventdesk/pkg/requestcontext"
)

var (
	employeeID = id.UserID(uuid.MustParse("00000000-0000-0000-0000-000000000001"))
	approverID = id.UserID(uuid.MustParse("00000000-0000-0000-0000-000000000002"))
)

type fixture struct {
	service       *Service
	requests      *requeststore.InMemory
	decisions     *decisionstore.InMemory
	historyStore  *history.InMemoryStore
	notifications *notification.InMemoryStore
	now           time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	requests := requeststore.NewInMemory()
	decisions := decisionstore.NewInMemory()
	historyStore := history.NewInMemoryStore()
	notifications := notification.NewInMemoryStore()

	ids := idgen.NewSequential()
	recorder := history.NewRecorder(historyStore, ids)
	dispatcher := notification.NewDispatcher(notifications, recorder, ids)

	svc := New(requests, decisions, recorder, dispatcher, WithIDAllocator(ids))
	return &fixture{
		service:       svc,
		requests:      requests,
		decisions:     decisions,
		historyStore:  historyStore,
		notifications: notifications,
		now:           time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) employeeCtx() context.Context {
	ctx := requestcontext.WithActor(context.Background(), employeeID, "Mock Employee", "employee")
	return requestcontext.WithTime(ctx, f.now)
}

func (f *fixture) approverCtx() context.Context {
	ctx := requestcontext.WithActor(context.Background(), approverID, "Avery Approver", "approver")
	return requestcontext.WithTime(ctx, f.now)
}

func validInput() models.SubmitRequestInput {
	return models.SubmitRequestInput{
		EventName:          "GopherCon Europe",
		EventWebsite:       "https://gophercon.eu",
		Role:               models.RoleSpeaker,
		TransportationMode: models.TransportAir,
		Origin:             "Berlin",
		Destination:        "Athens",
		CostEstimate: models.CostEstimate{
			Registration: 500, Travel: 300, Hotels: 400, Meals: 100,
			CurrencyCode: "EUR", Total: 1300,
		},
	}
}

func (f *fixture) submit(t *testing.T) *models.Request {
	t.Helper()
	req, err := f.service.Submit(f.employeeCtx(), validInput())
	require.NoError(t, err)
	return req
}

func TestSubmit(t *testing.T) {
	t.Run("creates request in submitted state at version 1", func(t *testing.T) {
		f := newFixture(t)
		req := f.submit(t)

		assert.Equal(t, models.StatusSubmitted, req.Status)
		assert.Equal(t, 1, req.Version)
		assert.Equal(t, "EA-1001", req.RequestNumber)
		assert.Equal(t, employeeID, req.SubmitterID)
		assert.Equal(t, "Mock Employee", req.SubmitterDisplayName)
		require.NotNil(t, req.SubmittedAt)
		assert.Equal(t, f.now, *req.SubmittedAt)
	})

	t.Run("records submitted audit entry", func(t *testing.T) {
		f := newFixture(t)
		req := f.submit(t)

		entries, err := f.service.History(f.employeeCtx(), req.ID, history.Filter{})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, history.EventSubmitted, entries[0].EventType)
		assert.Equal(t, history.ActorEmployee, entries[0].ActorRole)
		assert.Equal(t, employeeID, entries[0].ActorID)
		assert.Equal(t, f.now, entries[0].OccurredAt)
	})

	t.Run("assigns sequential request numbers", func(t *testing.T) {
		f := newFixture(t)
		first := f.submit(t)
		second := f.submit(t)
		assert.Equal(t, "EA-1001", first.RequestNumber)
		assert.Equal(t, "EA-1002", second.RequestNumber)
	})

	t.Run("rejects invalid input without side effects", func(t *testing.T) {
		f := newFixture(t)
		in := validInput()
		in.EventName = "Go"

		_, err := f.service.Submit(f.employeeCtx(), in)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		listed, err := f.service.List(f.employeeCtx(), models.ListFilter{})
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("rejects anonymous caller", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Submit(context.Background(), validInput())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	t.Run("returns the stored request", func(t *testing.T) {
		found, err := f.service.Get(f.employeeCtx(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, req.RequestNumber, found.RequestNumber)
	})

	t.Run("not found for unknown id", func(t *testing.T) {
		_, err := f.service.Get(f.employeeCtx(), id.RequestID(uuid.New()))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestDecideApproval(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	decision, err := f.service.Decide(f.approverCtx(), req.ID, models.DecisionInput{
		DecisionType: models.DecisionApproved,
		Comment:      "Budget confirmed",
		Version:      1,
	})
	require.NoError(t, err)

	t.Run("returns the recorded decision", func(t *testing.T) {
		assert.Equal(t, models.DecisionApproved, decision.DecisionType)
		assert.Equal(t, approverID, decision.ApproverID)
		assert.Equal(t, "Budget confirmed", decision.Comment)
		assert.Equal(t, f.now, decision.DecidedAt)
	})

	t.Run("transitions to approved at version 2", func(t *testing.T) {
		found, err := f.service.Get(f.approverCtx(), req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, found.Status)
		assert.Equal(t, 2, found.Version)
	})

	t.Run("appends an immutable decision record", func(t *testing.T) {
		decisions, err := f.service.Decisions(f.approverCtx(), req.ID)
		require.NoError(t, err)
		require.Len(t, decisions, 1)
		assert.Equal(t, decision.ID, decisions[0].ID)
		assert.Equal(t, models.DecisionApproved, decisions[0].DecisionType)
	})

	t.Run("records approved and notification_sent entries in order", func(t *testing.T) {
		entries, err := f.service.History(f.approverCtx(), req.ID, history.Filter{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, history.EventSubmitted, entries[0].EventType)
		assert.Equal(t, history.EventApproved, entries[1].EventType)
		assert.Equal(t, history.EventNotificationSent, entries[2].EventType)

		approvedEntry := entries[1]
		assert.Equal(t, history.ActorApprover, approvedEntry.ActorRole)
		assert.Equal(t, "Budget confirmed", approvedEntry.Comment)
		assert.Equal(t, 2, approvedEntry.Metadata["version"])
	})

	t.Run("queues an in-app notification for the submitter", func(t *testing.T) {
		listed, err := f.notifications.ListByRecipient(context.Background(), employeeID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, notification.ChannelInApp, listed[0].Channel)
		assert.Equal(t, notification.DeliveryQueued, listed[0].DeliveryStatus)
		assert.Equal(t, req.RequestNumber, listed[0].RequestNumber)
	})
}

func TestDecideRejection(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	decision, err := f.service.Decide(f.approverCtx(), req.ID, models.DecisionInput{
		DecisionType: models.DecisionRejected,
		Comment:      "Travel freeze this quarter",
		Version:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DecisionRejected, decision.DecisionType)

	found, err := f.service.Get(f.approverCtx(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, found.Status)
	assert.Equal(t, 2, found.Version)

	entries, err := f.service.History(f.approverCtx(), req.ID, history.Filter{
		EventTypes: []history.EventType{history.EventRejected},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Travel freeze this quarter", entries[0].Comment)
}

func TestDecideGuards(t *testing.T) {
	t.Run("requires approver role", func(t *testing.T) {
		f := newFixture(t)
		req := f.submit(t)

		_, err := f.service.Decide(f.employeeCtx(), req.ID, models.DecisionInput{
			DecisionType: models.DecisionApproved, Comment: "ok", Version: 1,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("requires a comment", func(t *testing.T) {
		f := newFixture(t)
		req := f.submit(t)

		_, err := f.service.Decide(f.approverCtx(), req.ID, models.DecisionInput{
			DecisionType: models.DecisionRejected, Version: 1,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("not found for unknown request", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Decide(f.approverCtx(), id.RequestID(uuid.New()), models.DecisionInput{
			DecisionType: models.DecisionApproved, Comment: "ok", Version: 1,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("second decision conflicts", func(t *testing.T) {
		f := newFixture(t)
		req := f.submit(t)

		_, err := f.service.Decide(f.approverCtx(), req.ID, models.DecisionInput{
			DecisionType: models.DecisionApproved, Comment: "ok", Version: 1,
		})
		require.NoError(t, err)

		_, err = f.service.Decide(f.approverCtx(), req.ID, models.DecisionInput{
			DecisionType: models.DecisionRejected, Comment: "changed my mind", Version: 2,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		assert.Equal(t, "Request is no longer pending review", messageOf(err))
	})
}

func TestDecideStaleVersion(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	// First decide bumps the version to 2.
	_, err := f.service.Decide(f.approverCtx(), req.ID, models.DecisionInput{
		DecisionType: models.DecisionApproved, Comment: "ok", Version: 1,
	})
	require.NoError(t, err)

	_, err = f.service.Decide(f.approverCtx(), req.ID, models.DecisionInput{
		DecisionType: models.DecisionRejected, Comment: "too slow", Version: 1,
	})
	require.Error(t, err)

	t.Run("returns conflict with both versions", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		details := dErrors.DetailsOf(err)
		assert.Equal(t, 1, details["expectedVersion"])
		assert.Equal(t, 2, details["currentVersion"])
	})

	t.Run("records stale_detected audit entry", func(t *testing.T) {
		entries, queryErr := f.service.History(f.approverCtx(), req.ID, history.Filter{
			EventTypes: []history.EventType{history.EventStaleDetected},
		})
		require.NoError(t, queryErr)
		require.Len(t, entries, 1)
		assert.Equal(t, history.ActorSystem, entries[0].ActorRole)
		assert.Equal(t, "Version mismatch. Expected 1, received 2.", entries[0].Comment)
	})

	t.Run("request state is untouched", func(t *testing.T) {
		found, getErr := f.service.Get(f.approverCtx(), req.ID)
		require.NoError(t, getErr)
		assert.Equal(t, models.StatusApproved, found.Status)
		assert.Equal(t, 2, found.Version)
	})
}

// TestConcurrentDecide races two approvers submitting against the same
// version: exactly one wins, the loser gets a conflict carrying both
// versions, and the audit trail shows both outcomes.
func TestConcurrentDecide(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	const racers = 2
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	var conflictErr atomic.Value

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Decide(f.approverCtx(), req.ID, models.DecisionInput{
				DecisionType: models.DecisionApproved,
				Comment:      "approving",
				Version:      1,
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflictCount.Add(1)
				conflictErr.Store(err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load(), "exactly one decide should win")
	assert.Equal(t, int32(1), conflictCount.Load(), "the loser should get a conflict")

	err, ok := conflictErr.Load().(error)
	require.True(t, ok)
	details := dErrors.DetailsOf(err)
	assert.Equal(t, 1, details["expectedVersion"])
	assert.Equal(t, 2, details["currentVersion"])

	found, getErr := f.service.Get(f.approverCtx(), req.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 2, found.Version)

	decisions, listErr := f.service.Decisions(f.approverCtx(), req.ID)
	require.NoError(t, listErr)
	assert.Len(t, decisions, 1, "only the winner's decision should exist")

	stale, histErr := f.service.History(f.approverCtx(), req.ID, history.Filter{
		EventTypes: []history.EventType{history.EventStaleDetected},
	})
	require.NoError(t, histErr)
	assert.Len(t, stale, 1)
}

func TestListProjections(t *testing.T) {
	f := newFixture(t)
	first := f.submit(t)
	second := f.submit(t)

	_, err := f.service.Decide(f.approverCtx(), first.ID, models.DecisionInput{
		DecisionType: models.DecisionApproved, Comment: "Budget confirmed", Version: 1,
	})
	require.NoError(t, err)

	t.Run("joins latest decision comment", func(t *testing.T) {
		summaries, err := f.service.List(f.employeeCtx(), models.ListFilter{})
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		byNumber := map[string]models.RequestSummary{}
		for _, s := range summaries {
			byNumber[s.RequestNumber] = s
		}
		assert.Equal(t, "Budget confirmed", byNumber[first.RequestNumber].LatestComment)
		assert.Empty(t, byNumber[second.RequestNumber].LatestComment)
	})

	t.Run("pending excludes decided requests", func(t *testing.T) {
		pending, err := f.service.ListPending(f.approverCtx())
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, second.RequestNumber, pending[0].RequestNumber)
	})

	t.Run("mine filters by submitter", func(t *testing.T) {
		mine, err := f.service.ListMine(f.employeeCtx())
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		otherCtx := requestcontext.WithActor(context.Background(), approverID, "Avery Approver", "approver")
		theirs, err := f.service.ListMine(otherCtx)
		require.NoError(t, err)
		assert.Empty(t, theirs)
	})

	t.Run("summary carries projection fields", func(t *testing.T) {
		summaries, err := f.service.List(f.employeeCtx(), models.ListFilter{})
		require.NoError(t, err)
		s := summaries[0]
		assert.Equal(t, "Athens", s.Destination)
		assert.Equal(t, float64(1300), s.TotalCost)
		assert.Equal(t, "Mock Employee", s.SubmitterDisplayName)
	})
}

func TestHistoryQueryFilters(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	_, err := f.service.Decide(f.approverCtx(), req.ID, models.DecisionInput{
		DecisionType: models.DecisionApproved, Comment: "ok", Version: 1,
	})
	require.NoError(t, err)

	t.Run("not found for unknown request", func(t *testing.T) {
		_, err := f.service.History(f.employeeCtx(), id.RequestID(uuid.New()), history.Filter{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("filters by event type", func(t *testing.T) {
		entries, err := f.service.History(f.employeeCtx(), req.ID, history.Filter{
			EventTypes: []history.EventType{history.EventNotificationSent},
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].Comment, "Status notification")
	})
}

func messageOf(err error) string {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		return ""
	}
	return de.Message
}
