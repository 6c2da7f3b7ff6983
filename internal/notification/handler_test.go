package notification_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventdesk/internal/notification"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/testutil"
)

func TestNotificationInbox(t *testing.T) {
	store := notification.NewInMemoryStore()
	router := chi.NewRouter()
	notification.NewHandler(store, nil).Register(router)

	recipient := id.UserID(uuid.MustParse("00000000-0000-0000-0000-000000000001"))
	other := id.UserID(uuid.MustParse("00000000-0000-0000-0000-000000000002"))

	seed := []notification.Notification{
		{
			ID:             id.NotificationID(uuid.MustParse("00000000-0000-4000-8000-000000000001")),
			RecipientID:    recipient,
			RequestNumber:  "EA-1001",
			Subject:        "Request EA-1001 approved",
			DeliveryStatus: notification.DeliveryQueued,
			CreatedAt:      time.Now().Add(-time.Minute),
		},
		{
			ID:             id.NotificationID(uuid.MustParse("00000000-0000-4000-8000-000000000002")),
			RecipientID:    other,
			RequestNumber:  "EA-1002",
			Subject:        "Request EA-1002 rejected",
			DeliveryStatus: notification.DeliveryQueued,
			CreatedAt:      time.Now(),
		},
	}
	for _, n := range seed {
		require.NoError(t, store.Create(context.Background(), n))
	}

	t.Run("lists only the actor's notifications", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/notifications")
		req = testutil.WithActor(req, recipient.String(), "Mock Employee", "employee")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[[]notification.Notification](t, rr)
		require.Len(t, *got, 1)
		assert.Equal(t, "EA-1001", (*got)[0].RequestNumber)
	})

	t.Run("empty inbox returns empty list", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/notifications")
		req = testutil.WithActor(req, "00000000-0000-0000-0000-000000000099", "Nobody", "employee")
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[[]notification.Notification](t, rr)
		assert.Empty(t, *got)
	})

	t.Run("rejects anonymous caller", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/notifications")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}
