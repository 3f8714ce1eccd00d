package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/lianamed/pharmacy-api/internal/domain/notification"
)

type notificationResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListNotifications returns the authenticated user's notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.ListForUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	out := make([]notificationResponse, len(list))
	for i, n := range list {
		out[i] = notificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// MarkNotificationRead flags one of the user's notifications as read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	err := h.notifications.MarkRead(r.Context(), chi.URLParam(r, "id"), userIDFrom(r.Context()))
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			respondError(w, http.StatusNotFound, "notification not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
