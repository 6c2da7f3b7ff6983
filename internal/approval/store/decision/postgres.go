package decision

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"eventdesk/internal/approval/models"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/tx"
)

// PostgresStore persists decisions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, d models.Decision) error {
	query := `
		INSERT INTO decisions (
			id, request_id, approver_id, approver_display_name,
			decision_type, comment, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(d.ID), uuid.UUID(d.RequestID), uuid.UUID(d.ApproverID), d.ApproverDisplayName,
		string(d.DecisionType), d.Comment, d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]models.Decision, error) {
	query := `
		SELECT id, request_id, approver_id, approver_display_name,
			decision_type, comment, decided_at
		FROM decisions
		WHERE request_id = $1
		ORDER BY decided_at DESC
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()
	return collectDecisions(rows)
}

// LatestByRequest returns the newest decision per request id, using
// DISTINCT ON so one round trip serves a whole list page.
func (s *PostgresStore) LatestByRequest(ctx context.Context, requestIDs []id.RequestID) (map[id.RequestID]models.Decision, error) {
	if len(requestIDs) == 0 {
		return map[id.RequestID]models.Decision{}, nil
	}
	raw := make([]uuid.UUID, len(requestIDs))
	for i, requestID := range requestIDs {
		raw[i] = uuid.UUID(requestID)
	}
	query := `
		SELECT DISTINCT ON (request_id)
			id, request_id, approver_id, approver_display_name,
			decision_type, comment, decided_at
		FROM decisions
		WHERE request_id = ANY($1)
		ORDER BY request_id, decided_at DESC
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("latest decisions: %w", err)
	}
	defer rows.Close()

	listed, err := collectDecisions(rows)
	if err != nil {
		return nil, err
	}
	latest := make(map[id.RequestID]models.Decision, len(listed))
	for _, d := range listed {
		latest[d.RequestID] = d
	}
	return latest, nil
}

func collectDecisions(rows *sql.Rows) ([]models.Decision, error) {
	var decisions []models.Decision
	for rows.Next() {
		var (
			d            models.Decision
			decisionID   uuid.UUID
			requestID    uuid.UUID
			approverID   uuid.UUID
			decisionType string
		)
		err := rows.Scan(&decisionID, &requestID, &approverID, &d.ApproverDisplayName,
			&decisionType, &d.Comment, &d.DecidedAt)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.ID = id.DecisionID(decisionID)
		d.RequestID = id.RequestID(requestID)
		d.ApproverID = id.UserID(approverID)
		d.DecisionType = models.DecisionType(decisionType)
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect decisions: %w", err)
	}
	return decisions, nil
}
