package decision

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"eventdesk/internal/approval/models"
	id "eventdesk/pkg/domain"
)

type DecisionStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *DecisionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestDecisionStoreSuite(t *testing.T) {
	suite.Run(t, new(DecisionStoreSuite))
}

func (s *DecisionStoreSuite) newDecision(requestID id.RequestID, decidedAt time.Time) models.Decision {
	return models.Decision{
		ID:                  id.DecisionID(uuid.New()),
		RequestID:           requestID,
		ApproverID:          id.UserID(uuid.New()),
		ApproverDisplayName: "Test Approver",
		DecisionType:        models.DecisionApproved,
		Comment:             "Budget approved",
		DecidedAt:           decidedAt,
	}
}

func (s *DecisionStoreSuite) TestAppendAndList() {
	requestID := id.RequestID(uuid.New())
	older := s.newDecision(requestID, time.Now().Add(-time.Hour))
	newer := s.newDecision(requestID, time.Now())

	s.Require().NoError(s.store.Append(s.ctx, older))
	s.Require().NoError(s.store.Append(s.ctx, newer))

	s.Run("lists most recent first", func() {
		listed, err := s.store.ListByRequest(s.ctx, requestID)
		s.Require().NoError(err)
		s.Require().Len(listed, 2)
		s.Equal(newer.ID, listed[0].ID)
		s.Equal(older.ID, listed[1].ID)
	})

	s.Run("empty for unknown request", func() {
		listed, err := s.store.ListByRequest(s.ctx, id.RequestID(uuid.New()))
		s.Require().NoError(err)
		s.Empty(listed)
	})
}

func (s *DecisionStoreSuite) TestLatestByRequest() {
	decided := id.RequestID(uuid.New())
	undecided := id.RequestID(uuid.New())

	older := s.newDecision(decided, time.Now().Add(-time.Hour))
	newer := s.newDecision(decided, time.Now())
	s.Require().NoError(s.store.Append(s.ctx, older))
	s.Require().NoError(s.store.Append(s.ctx, newer))

	latest, err := s.store.LatestByRequest(s.ctx, []id.RequestID{decided, undecided})
	s.Require().NoError(err)

	s.Require().Contains(latest, decided)
	s.Equal(newer.ID, latest[decided].ID)
	s.NotContains(latest, undecided)
}
