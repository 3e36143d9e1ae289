package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edumap/selserver/internal/i18n"
	"github.com/edumap/selserver/internal/llm"
	"github.com/edumap/selserver/internal/mail"
	"github.com/edumap/selserver/internal/model"
	"github.com/edumap/selserver/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store *store.Store
	llm   *llm.Client
	mail  mail.Sender
}

// New creates a new Handler.
func New(s *store.Store, l *llm.Client, m mail.Sender) *Handler {
	return &Handler{store: s, llm: l, mail: m}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/classes", func(r chi.Router) {
		r.Post("/create", h.handleCreateClass)
		r.Get("/teacher/{teacherId}", h.handleClassesByTeacher)
		r.Get("/get-class-by-code", h.handleClassByCode)
		r.Get("/get-classes-done-simulation/{studentId}", h.handleClassesDoneSimulation)
		r.Get("/get-all-classes", h.handleAllClasses)
		r.Post("/submit-answer", h.handleSubmitAnswer)
		r.Delete("/delete/{classCode}", h.handleDeleteClass)
		r.Get("/{classCode}/student/{studentId}", h.handleStudentLatestAnswer)
		r.Post("/ai-class-insight", h.handleClassInsight)
		r.Get("/{classCode}/export", h.handleExportClass)
	})

	r.Route("/api/ai", func(r chi.Router) {
		r.Post("/ask", h.handleAsk)
		r.Post("/chat", h.handleChat)
		r.Post("/generate-situation", h.handleGenerateSituation)
		r.Post("/analyze-response", h.handleAnalyzeResponse)
		r.Post("/chat-insight", h.handleTeacherChatInsight)
		r.Post("/student-chat-insight", h.handleStudentChatInsight)
	})

	r.Route("/api/teacher", func(r chi.Router) {
		r.Post("/register", h.handleTeacherRegister)
		r.Post("/login", h.handleTeacherLogin)
		r.Post("/forgot-password", h.handleTeacherForgotPassword)
		r.Post("/verify-code", h.handleTeacherVerifyCode)
		r.Post("/reset-password", h.handleTeacherResetPassword)
		r.Get("/{teacherId}/summary", h.handleTeacherSummary)
	})

	r.Route("/api/student", func(r chi.Router) {
		r.Post("/register", h.handleStudentRegister)
		r.Post("/login", h.handleStudentLogin)
		r.Post("/forgot-password", h.handleStudentForgotPassword)
		r.Post("/verify-code", h.handleStudentVerifyCode)
		r.Post("/reset-password", h.handleStudentResetPassword)
	})

	r.Route("/api/notifications/{audience}", func(r chi.Router) {
		r.Post("/", h.handleCreateNotification)
		r.Get("/{ownerId}", h.handleListNotifications)
		r.Put("/{ownerId}/read/{id}", h.handleMarkNotificationRead)
		r.Put("/{ownerId}/read-all", h.handleMarkAllNotificationsRead)
	})

	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/teacher/{teacherId}/students", h.handleTeacherStudentReport)
		r.Get("/student/{studentId}/progress", h.handleStudentProgress)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondMessage sends a localized {message} payload.
func (h *Handler) respondMessage(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, map[string]string{"message": i18n.T(r.Context(), msgID)})
}

// respondError sends a localized {error} payload.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, map[string]string{"error": i18n.T(r.Context(), msgID)})
}

// internalError logs the cause and sends the generic 500 message.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	h.respondError(w, r, http.StatusInternalServerError, "InternalError")
}

// decodeJSON decodes the request body into v. On failure it writes a
// 400 and returns false.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return false
	}
	return true
}

// aiFailure sends the AI endpoint error envelope.
func (h *Handler) aiFailure(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("AI request failed", "path", r.URL.Path, "error", err)
	respondJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

// notify records a notification; failures are logged, never fatal to
// the request that triggered them.
func (h *Handler) notify(r *http.Request, n model.Notification) {
	if _, err := h.store.CreateNotification(n); err != nil {
		slog.Error("create notification", "ownerId", n.OwnerID, "type", n.Type, "error", err)
	}
}
