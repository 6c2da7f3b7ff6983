// Package service orchestrates the attendance request lifecycle: submission,
// listing, decisions, and the audit trail around them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	approvalmetrics "eventdesk/internal/approval/metrics"
	"eventdesk/internal/approval/models"
	"eventdesk/internal/history"
	"eventdesk/internal/notification"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/idgen"
	"eventdesk/pkg/platform/sentinel"
	"eventdesk/pkg/requestcontext"
)

// Service implements the approval request lifecycle.
type Service struct {
	requests  RequestStore
	decisions DecisionStore
	hist      HistoryRecorder
	notifier  NotificationDispatcher
	ids       idgen.Allocator
	metrics   *approvalmetrics.Metrics
	logger    *slog.Logger
	tx        StoreTx
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *approvalmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithStoreTx sets the transaction runner. Defaults to a pass-through for
// in-memory stores.
func WithStoreTx(tx StoreTx) Option {
	return func(s *Service) { s.tx = tx }
}

func WithIDAllocator(ids idgen.Allocator) Option {
	return func(s *Service) { s.ids = ids }
}

func New(requests RequestStore, decisions DecisionStore, hist HistoryRecorder, notifier NotificationDispatcher, opts ...Option) *Service {
	s := &Service{
		requests:  requests,
		decisions: decisions,
		hist:      hist,
		notifier:  notifier,
		ids:       idgen.Random{},
		logger:    slog.Default(),
		tx:        newInMemoryStoreTx(),
		tracer:    otel.Tracer("eventdesk/approval"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the input, snapshots the submitter's identity, and creates
// the request in submitted state at version 1, with its first audit entry.
func (s *Service) Submit(ctx context.Context, in models.SubmitRequestInput) (*models.Request, error) {
	ctx, span := s.tracer.Start(ctx, "approval.Submit")
	defer span.End()

	actorID, actorName, actorRole, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	validated, err := models.ValidateSubmitInput(in)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	req := &models.Request{
		ID:                   id.RequestID(s.ids.NewID()),
		SubmitterID:          actorID,
		SubmitterDisplayName: actorName,
		EventName:            validated.EventName,
		EventWebsite:         validated.EventWebsite,
		Role:                 validated.Role,
		TransportationMode:   validated.TransportationMode,
		Origin:               validated.Origin,
		Destination:          validated.Destination,
		CostEstimate:         validated.CostEstimate,
		Status:               models.StatusSubmitted,
		CreatedAt:            now,
		UpdatedAt:            now,
		SubmittedAt:          &now,
		Version:              1,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requests.Create(txCtx, req); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create request")
		}
		return s.hist.Record(txCtx, history.Entry{
			RequestID:        req.ID,
			EventType:        history.EventSubmitted,
			ActorID:          actorID,
			ActorDisplayName: actorName,
			ActorRole:        actorRole,
			Metadata:         map[string]any{"version": req.Version},
		})
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("request.number", req.RequestNumber))
	s.metrics.IncrementSubmitted()
	s.logger.InfoContext(ctx, "request submitted",
		"request_id", req.ID.String(),
		"request_number", req.RequestNumber,
		"submitter_id", actorID.String())
	return req, nil
}

// Get returns one request by id.
func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	return req, nil
}

// List returns request summaries matching the filter, most recently
// submitted first, with the latest decision comment joined in.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]models.RequestSummary, error) {
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
	}

	requestIDs := make([]id.RequestID, len(requests))
	for i, req := range requests {
		requestIDs[i] = req.ID
	}
	latest, err := s.decisions.LatestByRequest(ctx, requestIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load decision comments")
	}

	summaries := make([]models.RequestSummary, len(requests))
	for i, req := range requests {
		summary := req.Summary()
		if d, ok := latest[req.ID]; ok {
			summary.LatestComment = d.Comment
		}
		summaries[i] = summary
	}
	return summaries, nil
}

// ListMine returns the calling actor's own requests.
func (s *Service) ListMine(ctx context.Context) ([]models.RequestSummary, error) {
	actorID, _, _, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.List(ctx, models.ListFilter{SubmitterID: actorID})
}

// ListPending returns all requests still awaiting a decision.
func (s *Service) ListPending(ctx context.Context) ([]models.RequestSummary, error) {
	return s.List(ctx, models.ListFilter{Status: models.StatusSubmitted})
}

// History returns the request's audit trail in chronological order. The
// filter's RequestID is overridden with the given id.
func (s *Service) History(ctx context.Context, requestID id.RequestID, filter history.Filter) ([]history.Entry, error) {
	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		return nil, wrapRequestErr(err)
	}
	filter.RequestID = requestID
	entries, err := s.hist.Query(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query history")
	}
	return entries, nil
}

// Decisions returns the request's decision records, most recent first.
func (s *Service) Decisions(ctx context.Context, requestID id.RequestID) ([]models.Decision, error) {
	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		return nil, wrapRequestErr(err)
	}
	decisions, err := s.decisions.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list decisions")
	}
	return decisions, nil
}

// Decide applies an approve or reject decision to a pending request and
// returns the recorded decision.
//
// The version check, status transition, decision record, audit entry, and
// notification are one atomic unit: either all commit or none do. A stale
// expected version leaves the request untouched but still produces a
// stale_detected audit entry, written outside the failed unit so it survives
// the rollback.
func (s *Service) Decide(ctx context.Context, requestID id.RequestID, in models.DecisionInput) (*models.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "approval.Decide")
	defer span.End()
	start := time.Now()

	actorID, actorName, actorRole, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actorRole != history.ActorApprover {
		return nil, dErrors.New(dErrors.CodeForbidden, "approver role required")
	}

	validated, err := models.ValidateDecisionInput(in)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	currentVersion := 0
	var (
		updated *models.Request
		decided models.Decision
	)

	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.Execute(txCtx, requestID,
			func(r *models.Request) error {
				currentVersion = r.Version
				if err := r.CheckVersion(validated.Version); err != nil {
					return err
				}
				return r.CanDecide()
			},
			func(r *models.Request) {
				r.ApplyDecision(validated.DecisionType, now)
			},
		)
		if err != nil {
			return err
		}

		decision := models.Decision{
			ID:                  id.DecisionID(s.ids.NewID()),
			RequestID:           req.ID,
			ApproverID:          actorID,
			ApproverDisplayName: actorName,
			DecisionType:        validated.DecisionType,
			Comment:             validated.Comment,
			DecidedAt:           now,
		}
		if err := s.decisions.Append(txCtx, decision); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record decision")
		}

		eventType := history.EventApproved
		if validated.DecisionType == models.DecisionRejected {
			eventType = history.EventRejected
		}
		err = s.hist.Record(txCtx, history.Entry{
			RequestID:        req.ID,
			EventType:        eventType,
			ActorID:          actorID,
			ActorDisplayName: actorName,
			ActorRole:        history.ActorApprover,
			Comment:          validated.Comment,
			Metadata:         map[string]any{"version": req.Version},
		})
		if err != nil {
			return err
		}

		_, err = s.notifier.Dispatch(txCtx, notification.DispatchInput{
			RequestID:            req.ID,
			RequestNumber:        req.RequestNumber,
			RecipientID:          req.SubmitterID,
			RecipientDisplayName: req.SubmitterDisplayName,
			Outcome:              string(validated.DecisionType),
			Comment:              validated.Comment,
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to dispatch notification")
		}

		updated = req
		decided = decision
		return nil
	})

	switch {
	case txErr == nil:
	case errors.Is(txErr, sentinel.ErrStaleVersion):
		return nil, s.conflictOnStaleVersion(ctx, requestID, validated.Version, currentVersion)
	case errors.Is(txErr, sentinel.ErrInvalidState):
		s.metrics.IncrementConflict()
		return nil, dErrors.New(dErrors.CodeConflict, "Request is no longer pending review")
	default:
		return nil, wrapRequestErr(txErr)
	}

	span.SetAttributes(
		attribute.String("request.number", updated.RequestNumber),
		attribute.String("decision.type", string(validated.DecisionType)),
	)
	s.metrics.IncrementOutcome(string(validated.DecisionType))
	s.metrics.ObserveDecideLatency(time.Since(start))
	s.logger.InfoContext(ctx, "request decided",
		"request_id", updated.ID.String(),
		"request_number", updated.RequestNumber,
		"decision_type", string(validated.DecisionType),
		"approver_id", actorID.String())
	return &decided, nil
}

// conflictOnStaleVersion records the stale_detected audit entry and builds
// the Conflict error callers receive. The entry is written with the original
// ctx (not the rolled-back transaction) so it persists.
func (s *Service) conflictOnStaleVersion(ctx context.Context, requestID id.RequestID, expected, current int) error {
	entry := history.Entry{
		RequestID: requestID,
		EventType: history.EventStaleDetected,
		ActorRole: history.ActorSystem,
		Comment:   fmt.Sprintf("Version mismatch. Expected %d, received %d.", expected, current),
		Metadata: map[string]any{
			"expectedVersion": expected,
			"currentVersion":  current,
		},
	}
	if err := s.hist.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record stale version audit entry",
			"request_id", requestID.String(), "error", err)
	}

	s.metrics.IncrementConflict()
	return dErrors.New(dErrors.CodeConflict, "request version is stale").
		WithDetails(dErrors.Details{
			"expectedVersion": expected,
			"currentVersion":  current,
		})
}

// requireActor pulls the authenticated actor from ctx. Operations reject
// anonymous callers before touching any store.
func (s *Service) requireActor(ctx context.Context) (id.UserID, string, history.ActorRole, error) {
	actorID := requestcontext.UserID(ctx)
	if actorID.IsNil() {
		return id.UserID{}, "", "", dErrors.New(dErrors.CodeUnauthorized, "actor identity required")
	}
	role := history.ActorRole(requestcontext.ActorRole(ctx))
	switch role {
	case history.ActorEmployee, history.ActorApprover:
	default:
		return id.UserID{}, "", "", dErrors.New(dErrors.CodeUnauthorized, "unrecognized actor role")
	}
	return actorID, requestcontext.DisplayName(ctx), role, nil
}

// wrapRequestErr translates store sentinels into coded errors. Errors that
// already carry a code pass through unchanged.
func wrapRequestErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "request store failure")
}
