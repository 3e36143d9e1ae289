package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edumap/selserver/internal/model"
)

// audienceParam resolves the {audience} route segment. Writes a 400 and
// returns false for anything but "teacher" or "student".
func (h *Handler) audienceParam(w http.ResponseWriter, r *http.Request) (model.Audience, bool) {
	aud := model.Audience(chi.URLParam(r, "audience"))
	if aud != model.AudienceTeacher && aud != model.AudienceStudent {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return "", false
	}
	return aud, true
}

type createNotificationRequest struct {
	OwnerID string                 `json:"ownerId"`
	Type    model.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Content string                 `json:"content,omitempty"`
	Time    string                 `json:"time,omitempty"`
}

func (h *Handler) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	aud, ok := h.audienceParam(w, r)
	if !ok {
		return
	}
	var req createNotificationRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.OwnerID == "" || req.Title == "" {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	if !model.ValidNotificationType(aud, req.Type) {
		h.respondError(w, r, http.StatusBadRequest, "InvalidNotificationType")
		return
	}

	n := model.Notification{
		Audience: aud,
		OwnerID:  req.OwnerID,
		Type:     req.Type,
		Title:    req.Title,
		Content:  req.Content,
		Time:     req.Time,
	}
	id, err := h.store.CreateNotification(n)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	n.ID = id
	respondJSON(w, http.StatusCreated, n)
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	aud, ok := h.audienceParam(w, r)
	if !ok {
		return
	}

	list, err := h.store.ListNotifications(aud, chi.URLParam(r, "ownerId"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	aud, ok := h.audienceParam(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	found, err := h.store.MarkNotificationRead(aud, chi.URLParam(r, "ownerId"), id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !found {
		h.respondError(w, r, http.StatusNotFound, "NotificationNotFound")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"read": true})
}

func (h *Handler) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	aud, ok := h.audienceParam(w, r)
	if !ok {
		return
	}

	n, err := h.store.MarkAllNotificationsRead(aud, chi.URLParam(r, "ownerId"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
