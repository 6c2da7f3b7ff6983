package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eventdesk/internal/approval/models"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
	"eventdesk/pkg/platform/tx"
)

// PostgresStore persists requests in PostgreSQL. Request numbers come from
// the event_request_number_seq sequence so concurrent creates never collide.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the ambient transaction when one is carried in ctx, so writes
// issued inside a service-level RunInTx land in the same transaction.
func (s *PostgresStore) q(ctx context.Context) querier {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return s.db
}

const requestColumns = `id, request_number, submitter_id, submitter_display_name,
	event_name, event_website, role, transportation_mode, origin, destination,
	cost_registration, cost_travel, cost_hotels, cost_meals, cost_other,
	currency_code, cost_total, status, created_at, updated_at, submitted_at, version`

func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	query := `
		INSERT INTO event_requests (
			id, request_number, submitter_id, submitter_display_name,
			event_name, event_website, role, transportation_mode, origin, destination,
			cost_registration, cost_travel, cost_hotels, cost_meals, cost_other,
			currency_code, cost_total, status, created_at, updated_at, submitted_at, version
		) VALUES (
			$1, 'EA-' || nextval('event_request_number_seq'), $2, $3,
			$4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21
		)
		RETURNING request_number
	`
	c := req.CostEstimate
	err := s.q(ctx).QueryRowContext(ctx, query,
		uuid.UUID(req.ID), uuid.UUID(req.SubmitterID), req.SubmitterDisplayName,
		req.EventName, req.EventWebsite, string(req.Role), string(req.TransportationMode), req.Origin, req.Destination,
		c.Registration, c.Travel, c.Hotels, c.Meals, c.Other,
		c.CurrencyCode, c.Total, string(req.Status), req.CreatedAt, req.UpdatedAt, req.SubmittedAt, req.Version,
	).Scan(&req.RequestNumber)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM event_requests WHERE id = $1`
	req, err := scanRequest(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find request by id: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM event_requests WHERE 1=1`
	args := []any{}
	if !filter.SubmitterID.IsNil() {
		args = append(args, uuid.UUID(filter.SubmitterID))
		query += fmt.Sprintf(" AND submitter_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate then mutate,
// and writes the mutated fields back, all inside one transaction. When ctx
// already carries a transaction the row lock joins it, so a caller wrapping
// Execute and further writes in RunInTx gets a single atomic commit.
func (s *PostgresStore) Execute(
	ctx context.Context,
	requestID id.RequestID,
	validate func(*models.Request) error,
	mutate func(*models.Request),
) (*models.Request, error) {
	if dbTx, ok := tx.From(ctx); ok {
		return s.executeIn(ctx, dbTx, requestID, validate, mutate)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	req, err := s.executeIn(ctx, dbTx, requestID, validate, mutate)
	if err != nil {
		_ = dbTx.Rollback()
		return nil, err
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit request update: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) executeIn(
	ctx context.Context,
	dbTx *sql.Tx,
	requestID id.RequestID,
	validate func(*models.Request) error,
	mutate func(*models.Request),
) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM event_requests WHERE id = $1 FOR UPDATE`
	req, err := scanRequest(dbTx.QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}

	if err := validate(req); err != nil {
		return nil, err
	}
	mutate(req)

	_, err = dbTx.ExecContext(ctx, `
		UPDATE event_requests
		SET status = $2, updated_at = $3, version = $4
		WHERE id = $1
	`, uuid.UUID(req.ID), string(req.Status), req.UpdatedAt, req.Version)
	if err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}
	return req, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		req         models.Request
		requestID   uuid.UUID
		submitterID uuid.UUID
		role        string
		transport   string
		status      string
		submittedAt sql.NullTime
	)
	err := row.Scan(
		&requestID, &req.RequestNumber, &submitterID, &req.SubmitterDisplayName,
		&req.EventName, &req.EventWebsite, &role, &transport, &req.Origin, &req.Destination,
		&req.CostEstimate.Registration, &req.CostEstimate.Travel, &req.CostEstimate.Hotels,
		&req.CostEstimate.Meals, &req.CostEstimate.Other,
		&req.CostEstimate.CurrencyCode, &req.CostEstimate.Total, &status,
		&req.CreatedAt, &req.UpdatedAt, &submittedAt, &req.Version,
	)
	if err != nil {
		return nil, err
	}
	req.ID = id.RequestID(requestID)
	req.SubmitterID = id.UserID(submitterID)
	req.Role = models.RoleType(role)
	req.TransportationMode = models.TransportationMode(transport)
	req.Status = models.RequestStatus(status)
	if submittedAt.Valid {
		t := submittedAt.Time
		req.SubmittedAt = &t
	}
	return &req, nil
}
