package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/tx"
)

// PostgresStore persists history entries in PostgreSQL. An entry appended
// inside a service-level transaction commits atomically with the state
// change it records.
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

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	var metadata []byte
	if len(entry.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal history metadata: %w", err)
		}
	}
	query := `
		INSERT INTO history_entries (
			id, request_id, event_type, actor_id, actor_display_name,
			actor_role, comment, metadata, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID), uuid.UUID(entry.RequestID), string(entry.EventType),
		uuid.UUID(entry.ActorID), entry.ActorDisplayName, string(entry.ActorRole),
		entry.Comment, metadata, entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT id, request_id, event_type, actor_id, actor_display_name,
			actor_role, comment, metadata, occurred_at
		FROM history_entries
		WHERE 1=1`
	args := []any{}
	if !filter.RequestID.IsNil() {
		args = append(args, uuid.UUID(filter.RequestID))
		query += fmt.Sprintf(" AND request_id = $%d", len(args))
	}
	if len(filter.EventTypes) > 0 {
		types := make([]string, len(filter.EventTypes))
		for i, et := range filter.EventTypes {
			types[i] = string(et)
		}
		args = append(args, pq.Array(types))
		query += fmt.Sprintf(" AND event_type = ANY($%d)", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND occurred_at <= $%d", len(args))
	}
	query += ` ORDER BY occurred_at ASC, seq ASC`

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			entryID   uuid.UUID
			requestID uuid.UUID
			actorID   uuid.UUID
			eventType string
			actorRole string
			metadata  []byte
		)
		err := rows.Scan(&entryID, &requestID, &eventType, &actorID, &e.ActorDisplayName,
			&actorRole, &e.Comment, &metadata, &e.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.ID = id.HistoryEntryID(entryID)
		e.RequestID = id.RequestID(requestID)
		e.EventType = EventType(eventType)
		e.ActorID = id.UserID(actorID)
		e.ActorRole = ActorRole(actorRole)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal history metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return entries, nil
}
