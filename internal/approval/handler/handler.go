// Package handler exposes the approval API over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"eventdesk/internal/approval/models"
	"eventdesk/internal/history"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/httputil"
	"eventdesk/pkg/requestcontext"
)

// Service defines the approval operations the HTTP layer needs.
type Service interface {
	Submit(ctx context.Context, in models.SubmitRequestInput) (*models.Request, error)
	Get(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.RequestSummary, error)
	ListMine(ctx context.Context) ([]models.RequestSummary, error)
	ListPending(ctx context.Context) ([]models.RequestSummary, error)
	History(ctx context.Context, requestID id.RequestID, filter history.Filter) ([]history.Entry, error)
	Decisions(ctx context.Context, requestID id.RequestID) ([]models.Decision, error)
	Decide(ctx context.Context, requestID id.RequestID, in models.DecisionInput) (*models.Decision, error)
}

// Handler serves the request lifecycle endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the approval routes. Auth middleware is applied by the
// caller; RequireRole guards the approver-only routes here.
func (h *Handler) Register(r chi.Router, requireApprover func(http.Handler) http.Handler) {
	r.Route("/requests", func(r chi.Router) {
		r.Post("/", h.handleSubmit)
		r.Get("/", h.handleList)
		r.Route("/{requestID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Get("/history", h.handleHistory)
			r.Get("/decisions", h.handleDecisions)
			r.With(requireApprover).Post("/decision", h.handleDecide)
		})
	})
	r.With(requireApprover).Get("/approvals/pending", h.handlePending)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in models.SubmitRequestInput
	if err := httputil.Decode(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := h.service.Submit(ctx, in)
	if err != nil {
		h.writeServiceError(ctx, w, "submit request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := h.service.Get(ctx, requestID)
	if err != nil {
		h.writeServiceError(ctx, w, "get request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("submitter") == "me" {
		summaries, err := h.service.ListMine(ctx)
		if err != nil {
			h.writeServiceError(ctx, w, "list own requests", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, summaries)
		return
	}

	var filter models.ListFilter
	if status := r.URL.Query().Get("status"); status != "" {
		parsed := models.RequestStatus(status)
		if !parsed.Valid() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "unknown status filter"))
			return
		}
		filter.Status = parsed
	}

	summaries, err := h.service.List(ctx, filter)
	if err != nil {
		h.writeServiceError(ctx, w, "list requests", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summaries, err := h.service.ListPending(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "list pending requests", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	filter, err := parseHistoryFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.History(ctx, requestID, filter)
	if err != nil {
		h.writeServiceError(ctx, w, "query history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	decisions, err := h.service.Decisions(ctx, requestID)
	if err != nil {
		h.writeServiceError(ctx, w, "list decisions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decisions)
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var in models.DecisionInput
	if err := httputil.Decode(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}

	decision, err := h.service.Decide(ctx, requestID, in)
	if err != nil {
		h.writeServiceError(ctx, w, "decide request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decision)
}

// parseHistoryFilter reads eventType (repeatable), from, and to query
// parameters. Timestamps are RFC 3339.
func parseHistoryFilter(r *http.Request) (history.Filter, error) {
	var filter history.Filter
	for _, raw := range r.URL.Query()["eventType"] {
		eventType := history.EventType(raw)
		if !eventType.Valid() {
			return history.Filter{}, dErrors.Newf(dErrors.CodeValidation, "unknown event type %q", raw)
		}
		filter.EventTypes = append(filter.EventTypes, eventType)
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return history.Filter{}, dErrors.New(dErrors.CodeValidation, "from must be an RFC 3339 timestamp")
		}
		filter.From = &from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return history.Filter{}, dErrors.New(dErrors.CodeValidation, "to must be an RFC 3339 timestamp")
		}
		filter.To = &to
	}
	return filter, nil
}

// writeServiceError logs unexpected failures and writes the coded response.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "approval operation failed",
			"op", op,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
