package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	notifysvc "github.com/Iornfire12211221/KNG-sub001/internal/services/notify"
	httperrors "github.com/Iornfire12211221/KNG-sub001/internal/transport/http/errors"
)

type NotificationsHandler struct {
	dispatcher *notifysvc.Dispatcher
	logger     *zap.Logger
}

func NewNotificationsHandler(dispatcher *notifysvc.Dispatcher, logger *zap.Logger) *NotificationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationsHandler{dispatcher: dispatcher, logger: logger}
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if h.dispatcher == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	history, err := h.dispatcher.History(r.Context(), identity.UserID, limit)
	if err != nil {
		h.logger.Error("list notifications failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "failed to list notifications")
		return
	}

	httperrors.WriteData(w, http.StatusOK, history)
}

func (h *NotificationsHandler) Ack(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	if h.dispatcher == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}

	if err := h.dispatcher.Ack(r.Context(), identity.UserID, chi.URLParam(r, "id")); err != nil {
		writeNotFound(w, "NOTIFICATION_NOT_FOUND", "notification not found")
		return
	}

	httperrors.WriteData(w, http.StatusOK, map[string]bool{"acknowledged": true})
}
