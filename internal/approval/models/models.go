// Package models defines the event attendance approval entities and their
// lifecycle rules.
package models

import (
	"time"

	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
)

// RoleType is the submitter's role at the event.
type RoleType string

const (
	RoleSpeaker   RoleType = "speaker"
	RoleOrganizer RoleType = "organizer"
	RoleAssistant RoleType = "assistant"
)

func (r RoleType) Valid() bool {
	switch r {
	case RoleSpeaker, RoleOrganizer, RoleAssistant:
		return true
	}
	return false
}

// TransportationMode is the planned travel mode.
type TransportationMode string

const (
	TransportAir   TransportationMode = "air"
	TransportRail  TransportationMode = "rail"
	TransportCar   TransportationMode = "car"
	TransportBus   TransportationMode = "bus"
	TransportOther TransportationMode = "other"
)

func (m TransportationMode) Valid() bool {
	switch m {
	case TransportAir, TransportRail, TransportCar, TransportBus, TransportOther:
		return true
	}
	return false
}

// RequestStatus is the request lifecycle state.
//
// Transitions: a request is created directly in StatusSubmitted and moves to
// exactly one of StatusApproved or StatusRejected, exactly once. StatusDraft
// exists in the data model for imported records but no transition leads out
// of it here.
type RequestStatus string

const (
	StatusDraft     RequestStatus = "draft"
	StatusSubmitted RequestStatus = "submitted"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further mutation is permitted.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// DecisionType is the outcome of one approval act.
type DecisionType string

const (
	DecisionApproved DecisionType = "approved"
	DecisionRejected DecisionType = "rejected"
)

func (d DecisionType) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Status returns the request status a decision of this type produces.
func (d DecisionType) Status() RequestStatus {
	if d == DecisionApproved {
		return StatusApproved
	}
	return StatusRejected
}

// CostEstimate is the request's cost breakdown. Total must equal the sum of
// the five components and the sum must be strictly positive.
type CostEstimate struct {
	Registration float64 `json:"registration"`
	Travel       float64 `json:"travel"`
	Hotels       float64 `json:"hotels"`
	Meals        float64 `json:"meals"`
	Other        float64 `json:"other"`
	CurrencyCode string  `json:"currencyCode"`
	Total        float64 `json:"total"`
}

// Sum returns the component sum, independent of the declared Total.
func (c CostEstimate) Sum() float64 {
	return c.Registration + c.Travel + c.Hotels + c.Meals + c.Other
}

// SubmitRequestInput is the caller-supplied payload for a new request.
type SubmitRequestInput struct {
	EventName          string             `json:"eventName"`
	EventWebsite       string             `json:"eventWebsite"`
	Role               RoleType           `json:"role"`
	TransportationMode TransportationMode `json:"transportationMode"`
	Origin             string             `json:"origin"`
	Destination        string             `json:"destination"`
	CostEstimate       CostEstimate       `json:"costEstimate"`
}

// Request is the aggregate root for one attendance approval case.
//
// Invariants:
//   - RequestNumber is unique, assigned at creation, immutable
//   - Submitter identity is snapshotted at submission, never re-resolved
//   - Version starts at 1 and increments exactly once per accepted mutation
//   - Once Status is terminal, no further mutation is accepted
type Request struct {
	ID                   id.RequestID       `json:"requestId"`
	RequestNumber        string             `json:"requestNumber"`
	SubmitterID          id.UserID          `json:"submitterId"`
	SubmitterDisplayName string             `json:"submitterDisplayName"`
	EventName            string             `json:"eventName"`
	EventWebsite         string             `json:"eventWebsite"`
	Role                 RoleType           `json:"role"`
	TransportationMode   TransportationMode `json:"transportationMode"`
	Origin               string             `json:"origin"`
	Destination          string             `json:"destination"`
	CostEstimate         CostEstimate       `json:"costEstimate"`
	Status               RequestStatus      `json:"status"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
	SubmittedAt          *time.Time         `json:"submittedAt"`
	Version              int                `json:"version"`
}

// CheckVersion compares a caller-supplied expected version against the
// stored one. A mismatch is the optimistic-concurrency stale-write signal.
func (r *Request) CheckVersion(expectedVersion int) error {
	if r.Version != expectedVersion {
		return sentinel.ErrStaleVersion
	}
	return nil
}

// CanDecide checks whether the request is still pending. Guards against a
// double decision even when the version happens to match.
func (r *Request) CanDecide() error {
	if r.Status != StatusSubmitted {
		return sentinel.ErrInvalidState
	}
	return nil
}

// ApplyDecision transitions the request to its terminal status and bumps the
// version. Call CheckVersion and CanDecide first, under the store's lock.
func (r *Request) ApplyDecision(decisionType DecisionType, now time.Time) {
	r.Status = decisionType.Status()
	r.Version++
	r.UpdatedAt = now
}

// RequestSummary is the list projection used by dashboards.
type RequestSummary struct {
	RequestID            id.RequestID  `json:"requestId"`
	RequestNumber        string        `json:"requestNumber"`
	EventName            string        `json:"eventName"`
	Role                 RoleType      `json:"role"`
	Status               RequestStatus `json:"status"`
	SubmittedAt          *time.Time    `json:"submittedAt"`
	Destination          string        `json:"destination,omitempty"`
	TotalCost            float64       `json:"totalCost,omitempty"`
	SubmitterDisplayName string        `json:"submitterDisplayName,omitempty"`
	LatestComment        string        `json:"latestComment,omitempty"`
}

// Summary projects a request into its list representation. The latest
// decision comment is joined in by the service.
func (r *Request) Summary() RequestSummary {
	return RequestSummary{
		RequestID:            r.ID,
		RequestNumber:        r.RequestNumber,
		EventName:            r.EventName,
		Role:                 r.Role,
		Status:               r.Status,
		SubmittedAt:          r.SubmittedAt,
		Destination:          r.Destination,
		TotalCost:            r.CostEstimate.Total,
		SubmitterDisplayName: r.SubmitterDisplayName,
	}
}

// Decision records one approve/reject act. Immutable once created.
type Decision struct {
	ID                  id.DecisionID `json:"decisionId"`
	RequestID           id.RequestID  `json:"requestId"`
	ApproverID          id.UserID     `json:"approverId"`
	ApproverDisplayName string        `json:"approverDisplayName"`
	DecisionType        DecisionType  `json:"decisionType"`
	Comment             string        `json:"comment"`
	DecidedAt           time.Time     `json:"decidedAt"`
}

// DecisionInput is the caller-supplied payload for deciding a request.
type DecisionInput struct {
	DecisionType DecisionType `json:"decisionType"`
	Comment      string       `json:"comment"`
	Version      int          `json:"version"`
}

// ListFilter narrows request list queries. Zero values mean "no constraint".
type ListFilter struct {
	SubmitterID id.UserID
	Status      RequestStatus
}
