package notification

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
	"eventdesk/pkg/platform/tx"
)

// PostgresStore persists notifications in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
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

func (s *PostgresStore) Create(ctx context.Context, n Notification) error {
	query := `
		INSERT INTO notifications (
			id, recipient_id, request_id, request_number, channel,
			payload_status, payload_comment, subject, body, delivery_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(n.ID), uuid.UUID(n.RecipientID), uuid.UUID(n.RequestID), n.RequestNumber,
		string(n.Channel), n.Payload.Status, n.Payload.Comment,
		n.Subject, n.Body, string(n.DeliveryStatus), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipientID id.UserID) ([]Notification, error) {
	query := `
		SELECT id, recipient_id, request_id, request_number, channel,
			payload_status, payload_comment, subject, body, delivery_status,
			created_at, sent_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(recipientID))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var listed []Notification
	for rows.Next() {
		var (
			n              Notification
			notificationID uuid.UUID
			recipient      uuid.UUID
			requestID      uuid.UUID
			channel        string
			status         string
		)
		err := rows.Scan(&notificationID, &recipient, &requestID, &n.RequestNumber,
			&channel, &n.Payload.Status, &n.Payload.Comment,
			&n.Subject, &n.Body, &status, &n.CreatedAt, &n.SentAt)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = id.NotificationID(notificationID)
		n.RecipientID = id.UserID(recipient)
		n.RequestID = id.RequestID(requestID)
		n.Payload.RequestID = id.RequestID(requestID)
		n.Channel = Channel(channel)
		n.DeliveryStatus = DeliveryStatus(status)
		listed = append(listed, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return listed, nil
}

func (s *PostgresStore) UpdateDeliveryStatus(ctx context.Context, notificationID id.NotificationID, status DeliveryStatus) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`UPDATE notifications
		 SET delivery_status = $2,
		     sent_at = CASE WHEN $2 = 'sent' THEN now() ELSE sent_at END
		 WHERE id = $1`,
		uuid.UUID(notificationID), string(status),
	)
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
