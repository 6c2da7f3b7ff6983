//go:build integration

package decision_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"eventdesk/internal/approval/models"
	"eventdesk/internal/approval/store/decision"
	"eventdesk/internal/approval/store/request"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *decision.PostgresStore
	requests *request.PostgresStore
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
	s.store = decision.NewPostgres(s.postgres.DB)
	s.requests = request.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order
	err := s.postgres.TruncateTables(ctx, "decisions", "event_requests")
	s.Require().NoError(err)
}

// seedRequest satisfies the foreign key so decisions can reference a real row.
func (s *PostgresStoreSuite) seedRequest() id.RequestID {
	now := time.Now()
	req := &models.Request{
		ID:                   id.RequestID(uuid.New()),
		SubmitterID:          id.UserID(uuid.New()),
		SubmitterDisplayName: "Test Submitter",
		EventName:            "GopherCon",
		EventWebsite:         "https://gophercon.com",
		Role:                 models.RoleSpeaker,
		TransportationMode:   models.TransportAir,
		Origin:               "Berlin",
		Destination:          "Chicago",
		CostEstimate:         models.CostEstimate{Registration: 500, CurrencyCode: "USD", Total: 500},
		Status:               models.StatusSubmitted,
		CreatedAt:            now,
		UpdatedAt:            now,
		SubmittedAt:          &now,
		Version:              1,
	}
	s.Require().NoError(s.requests.Create(context.Background(), req))
	return req.ID
}

func newTestDecision(requestID id.RequestID, dt models.DecisionType, decidedAt time.Time) models.Decision {
	return models.Decision{
		ID:                  id.DecisionID(uuid.New()),
		RequestID:           requestID,
		ApproverID:          id.UserID(uuid.New()),
		ApproverDisplayName: "Avery Approver",
		DecisionType:        dt,
		Comment:             "Budget confirmed",
		DecidedAt:           decidedAt,
	}
}

// TestAppendAndList verifies persistence and newest-first ordering.
func (s *PostgresStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	requestID := s.seedRequest()

	older := newTestDecision(requestID, models.DecisionRejected, time.Now().Add(-time.Hour))
	newer := newTestDecision(requestID, models.DecisionApproved, time.Now())
	s.Require().NoError(s.store.Append(ctx, older))
	s.Require().NoError(s.store.Append(ctx, newer))

	listed, err := s.store.ListByRequest(ctx, requestID)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(newer.ID, listed[0].ID)
	s.Equal(older.ID, listed[1].ID)
	s.Equal("Budget confirmed", listed[0].Comment)
}

// TestListEmpty verifies an undecided request yields no rows.
func (s *PostgresStoreSuite) TestListEmpty() {
	ctx := context.Background()
	requestID := s.seedRequest()

	listed, err := s.store.ListByRequest(ctx, requestID)
	s.Require().NoError(err)
	s.Empty(listed)
}

// TestLatestByRequest verifies the projection join picks the newest decision
// per request and omits undecided requests.
func (s *PostgresStoreSuite) TestLatestByRequest() {
	ctx := context.Background()
	decided := s.seedRequest()
	undecided := s.seedRequest()

	older := newTestDecision(decided, models.DecisionRejected, time.Now().Add(-time.Hour))
	newer := newTestDecision(decided, models.DecisionApproved, time.Now())
	s.Require().NoError(s.store.Append(ctx, older))
	s.Require().NoError(s.store.Append(ctx, newer))

	latest, err := s.store.LatestByRequest(ctx, []id.RequestID{decided, undecided})
	s.Require().NoError(err)
	s.Require().Len(latest, 1)
	s.Equal(newer.ID, latest[decided].ID)
}
