//go:build integration

package request_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"eventdesk/internal/approval/models"
	"eventdesk/internal/approval/store/request"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
	"eventdesk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *request.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = request.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order
	err := s.postgres.TruncateTables(ctx, "decisions", "event_requests")
	s.Require().NoError(err)
}

func newTestRequest(submitter id.UserID) *models.Request {
	now := time.Now()
	return &models.Request{
		ID:                   id.RequestID(uuid.New()),
		SubmitterID:          submitter,
		SubmitterDisplayName: "Test Submitter",
		EventName:            "GopherCon",
		EventWebsite:         "https://gophercon.com",
		Role:                 models.RoleSpeaker,
		TransportationMode:   models.TransportAir,
		Origin:               "Berlin",
		Destination:          "Chicago",
		CostEstimate:         models.CostEstimate{Registration: 500, Travel: 250, CurrencyCode: "USD", Total: 750},
		Status:               models.StatusSubmitted,
		CreatedAt:            now,
		UpdatedAt:            now,
		SubmittedAt:          &now,
		Version:              1,
	}
}

// TestCreateAssignsSequentialNumbers verifies the database sequence drives
// request number assignment.
func (s *PostgresStoreSuite) TestCreateAssignsSequentialNumbers() {
	ctx := context.Background()

	first := newTestRequest(id.UserID(uuid.New()))
	second := newTestRequest(id.UserID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))

	s.Equal("EA-1001", first.RequestNumber)
	s.Equal("EA-1002", second.RequestNumber)
}

// TestRoundTrip verifies every column survives a write and read back.
func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()

	req := newTestRequest(id.UserID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, req))

	found, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, found.ID)
	s.Equal(req.SubmitterID, found.SubmitterID)
	s.Equal("GopherCon", found.EventName)
	s.Equal(models.RoleSpeaker, found.Role)
	s.Equal(models.TransportAir, found.TransportationMode)
	s.Equal(750.0, found.CostEstimate.Total)
	s.Equal("USD", found.CostEstimate.CurrencyCode)
	s.Equal(models.StatusSubmitted, found.Status)
	s.Equal(1, found.Version)
	s.Require().NotNil(found.SubmittedAt)
	s.WithinDuration(*req.SubmittedAt, *found.SubmittedAt, time.Second)
}

// TestNotFound verifies lookups and mutations of unknown rows.
func (s *PostgresStoreSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, id.RequestID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Execute(ctx, id.RequestID(uuid.New()),
		func(r *models.Request) error { return nil },
		func(r *models.Request) {},
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestListFiltering verifies submitter and status filters plus ordering.
func (s *PostgresStoreSuite) TestListFiltering() {
	ctx := context.Background()
	mine := id.UserID(uuid.New())
	other := id.UserID(uuid.New())

	first := newTestRequest(mine)
	first.CreatedAt = time.Now().Add(-2 * time.Hour)
	second := newTestRequest(mine)
	second.CreatedAt = time.Now().Add(-1 * time.Hour)
	theirs := newTestRequest(other)

	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))
	s.Require().NoError(s.store.Create(ctx, theirs))

	_, err := s.store.Execute(ctx, theirs.ID,
		func(r *models.Request) error { return r.CheckVersion(1) },
		func(r *models.Request) { r.ApplyDecision(models.DecisionApproved, time.Now()) },
	)
	s.Require().NoError(err)

	listed, err := s.store.List(ctx, models.ListFilter{SubmitterID: mine})
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(second.ID, listed[0].ID)
	s.Equal(first.ID, listed[1].ID)

	pending, err := s.store.List(ctx, models.ListFilter{Status: models.StatusSubmitted})
	s.Require().NoError(err)
	s.Len(pending, 2)

	approved, err := s.store.List(ctx, models.ListFilter{SubmitterID: other, Status: models.StatusApproved})
	s.Require().NoError(err)
	s.Len(approved, 1)
}

// TestExecuteStaleVersion verifies a failed version check leaves the row
// untouched.
func (s *PostgresStoreSuite) TestExecuteStaleVersion() {
	ctx := context.Background()

	req := newTestRequest(id.UserID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, req))

	_, err := s.store.Execute(ctx, req.ID,
		func(r *models.Request) error { return r.CheckVersion(99) },
		func(r *models.Request) { r.ApplyDecision(models.DecisionApproved, time.Now()) },
	)
	s.Require().ErrorIs(err, sentinel.ErrStaleVersion)

	found, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, found.Status)
	s.Equal(1, found.Version)
}

// TestConcurrentExecute verifies the row lock serializes racing mutations so
// that exactly one version-checked write wins.
func (s *PostgresStoreSuite) TestConcurrentExecute() {
	ctx := context.Background()

	req := newTestRequest(id.UserID(uuid.New()))
	s.Require().NoError(s.store.Create(ctx, req))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, staleCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, req.ID,
				func(r *models.Request) error { return r.CheckVersion(1) },
				func(r *models.Request) { r.ApplyDecision(models.DecisionApproved, time.Now()) },
			)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrStaleVersion):
				staleCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one mutation should win")
	s.Equal(int32(goroutines-1), staleCount.Load(), "all others should observe a stale version")

	found, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, found.Status)
	s.Equal(2, found.Version)
}
