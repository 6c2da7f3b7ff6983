package notification

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/httputil"
	"eventdesk/pkg/requestcontext"
)

// Handler serves the in-app notification inbox.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
}

// handleList returns the calling actor's notifications, newest first.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recipientID := requestcontext.UserID(ctx)
	if recipientID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "actor identity required"))
		return
	}

	notifications, err := h.store.ListByRecipient(ctx, recipientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list notifications failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal,
			fmt.Sprintf("listing notifications for %s", recipientID)))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notifications)
}
