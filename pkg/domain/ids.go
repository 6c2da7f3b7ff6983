// Package domain defines the typed identifiers shared across the approval,
// history, and notification domains. Distinct types keep a DecisionID from
// ever being passed where a RequestID is expected; the compiler enforces it.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "eventdesk/pkg/domain-errors"
)

type (
	// RequestID identifies one event attendance approval request.
	RequestID uuid.UUID

	// DecisionID identifies one recorded approve/reject act.
	DecisionID uuid.UUID

	// HistoryEntryID identifies one immutable audit record.
	HistoryEntryID uuid.UUID

	// NotificationID identifies one notification delivery record.
	NotificationID uuid.UUID

	// UserID identifies an actor (submitter, approver) as resolved by the
	// identity provider.
	UserID uuid.UUID
)

func (id RequestID) String() string      { return uuid.UUID(id).String() }
func (id DecisionID) String() string     { return uuid.UUID(id).String() }
func (id HistoryEntryID) String() string { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }

func (id RequestID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id DecisionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id HistoryEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs in canonical form. No whitespace, no braces, no
// urn prefixes - anything non-canonical is rejected rather than normalized.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s id is required", kind)
	}
	if strings.TrimSpace(raw) != raw || len(raw) != 36 {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s id is not a canonical uuid", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s id is not a valid uuid", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s id must not be the nil uuid", kind)
	}
	return parsed, nil
}

// ParseRequestID parses and validates a request identifier.
func ParseRequestID(raw string) (RequestID, error) {
	parsed, err := parseUUID(raw, "request")
	return RequestID(parsed), err
}

// ParseDecisionID parses and validates a decision identifier.
func ParseDecisionID(raw string) (DecisionID, error) {
	parsed, err := parseUUID(raw, "decision")
	return DecisionID(parsed), err
}

// ParseHistoryEntryID parses and validates a history entry identifier.
func ParseHistoryEntryID(raw string) (HistoryEntryID, error) {
	parsed, err := parseUUID(raw, "history entry")
	return HistoryEntryID(parsed), err
}

// ParseNotificationID parses and validates a notification identifier.
func ParseNotificationID(raw string) (NotificationID, error) {
	parsed, err := parseUUID(raw, "notification")
	return NotificationID(parsed), err
}

// ParseUserID parses and validates a user identifier.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}
