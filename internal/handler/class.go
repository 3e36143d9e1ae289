package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edumap/selserver/internal/i18n"
	"github.com/edumap/selserver/internal/metrics"
	"github.com/edumap/selserver/internal/model"
	"github.com/edumap/selserver/internal/report"
	"github.com/edumap/selserver/internal/store"
)

type createClassRequest struct {
	ClassCode string `json:"classCode"`
	ClassName string `json:"className"`
	Subject   string `json:"subject"`
	Situation string `json:"situation"`
	Question  string `json:"question"`
	CreatedBy string `json:"createdBy"`
}

func (h *Handler) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var req createClassRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.ClassCode == "" || req.ClassName == "" || req.CreatedBy == "" {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	class := model.Class{
		ClassCode: req.ClassCode,
		ClassName: req.ClassName,
		Subject:   req.Subject,
		Situation: req.Situation,
		Question:  req.Question,
		CreatedBy: req.CreatedBy,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := h.store.CreateClass(class); err == store.ErrDuplicateClassCode {
		h.respondError(w, r, http.StatusBadRequest, "DuplicateClassCode")
		return
	} else if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.notify(r, model.Notification{
		Audience: model.AudienceTeacher,
		OwnerID:  req.CreatedBy,
		Type:     model.NotifySuccess,
		Title:    i18n.T(r.Context(), "ClassCreated"),
		Content:  fmt.Sprintf("%s (%s)", req.ClassName, req.ClassCode),
	})

	created, err := h.store.GetClassByCode(req.ClassCode)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleClassesByTeacher(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClassesByTeacher(chi.URLParam(r, "teacherId"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, classes)
}

func (h *Handler) handleClassByCode(w http.ResponseWriter, r *http.Request) {
	class, err := h.store.GetClassByCode(r.URL.Query().Get("classCode"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if class == nil {
		h.respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}
	respondJSON(w, http.StatusOK, class)
}

func (h *Handler) handleClassesDoneSimulation(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClassesForStudent(chi.URLParam(r, "studentId"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, classes)
}

func (h *Handler) handleAllClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClasses()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, classes)
}

type submitAnswerRequest struct {
	ClassCode  string `json:"classCode"`
	StudentID  string `json:"studentId"`
	AnswerText string `json:"answerText"`
}

// handleSubmitAnswer stores the answer even when analysis fails: the
// submission is kept with a NULL result so the attempt is never lost.
func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.ClassCode == "" || req.StudentID == "" {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	class, err := h.store.GetClassByCode(req.ClassCode)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if class == nil {
		h.respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}

	analysis, err := h.llm.AnalyzeResponse(r.Context(), class.Situation, class.Question, req.AnswerText)
	if err != nil {
		slog.Warn("analysis failed, storing submission unscored",
			"classCode", req.ClassCode, "studentId", req.StudentID, "error", err)
		analysis = nil
	}

	sub := model.Submission{
		StudentID:   req.StudentID,
		AnswerText:  req.AnswerText,
		Analysis:    analysis,
		SubmittedAt: time.Now().UTC(),
	}
	id, err := h.store.AppendSubmission(class.ID, sub)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	sub.ID = id
	metrics.Submissions.Inc()

	h.notify(r, model.Notification{
		Audience: model.AudienceTeacher,
		OwnerID:  class.CreatedBy,
		Type:     model.NotifyExam,
		Title:    fmt.Sprintf("New submission in %s", class.ClassName),
		Content:  req.StudentID,
	})
	h.notify(r, model.Notification{
		Audience: model.AudienceStudent,
		OwnerID:  req.StudentID,
		Type:     model.NotifySubmitted,
		Title:    i18n.T(r.Context(), "AnswerSubmitted"),
		Content:  class.ClassName,
	})

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":    i18n.T(r.Context(), "AnswerSubmitted"),
		"submission": sub,
	})
}

func (h *Handler) handleDeleteClass(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "classCode")
	class, err := h.store.GetClassByCode(code)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if class == nil {
		h.respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}

	if _, err := h.store.DeleteClass(code); err != nil {
		h.internalError(w, r, err)
		return
	}

	h.notify(r, model.Notification{
		Audience: model.AudienceTeacher,
		OwnerID:  class.CreatedBy,
		Type:     model.NotifyWarning,
		Title:    i18n.T(r.Context(), "ClassDeleted"),
		Content:  fmt.Sprintf("%s (%s)", class.ClassName, class.ClassCode),
	})
	h.respondMessage(w, r, http.StatusOK, "ClassDeleted")
}

func (h *Handler) handleStudentLatestAnswer(w http.ResponseWriter, r *http.Request) {
	class, err := h.store.GetClassByCode(chi.URLParam(r, "classCode"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if class == nil {
		h.respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}

	studentID := chi.URLParam(r, "studentId")
	var latest *model.Submission
	for i := range class.Submissions {
		sub := &class.Submissions[i]
		if sub.StudentID != studentID {
			continue
		}
		if latest == nil || sub.SubmittedAt.After(latest.SubmittedAt) {
			latest = sub
		}
	}
	if latest == nil {
		h.respondError(w, r, http.StatusNotFound, "NoSubmissions")
		return
	}
	respondJSON(w, http.StatusOK, latest)
}

type classInsightRequest struct {
	ClassCode string `json:"classCode"`
}

func (h *Handler) handleClassInsight(w http.ResponseWriter, r *http.Request) {
	var req classInsightRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	class, err := h.store.GetClassByCode(req.ClassCode)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if class == nil {
		h.respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}

	var analyses []model.AnalysisResult
	for _, sub := range class.Submissions {
		if sub.Analysis != nil {
			analyses = append(analyses, *sub.Analysis)
		}
	}
	if len(analyses) == 0 {
		h.respondError(w, r, http.StatusBadRequest, "NoSubmissions")
		return
	}

	insight, err := h.llm.ClassInsight(r.Context(), class.Situation, class.Question, analyses)
	if err != nil {
		h.aiFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "insight": insight})
}

func (h *Handler) handleExportClass(w http.ResponseWriter, r *http.Request) {
	class, err := h.store.GetClassByCode(chi.URLParam(r, "classCode"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if class == nil {
		h.respondError(w, r, http.StatusNotFound, "ClassNotFound")
		return
	}

	studentIDs := make([]string, 0, len(class.Submissions))
	seen := make(map[string]bool)
	for _, sub := range class.Submissions {
		if sub.StudentID != "" && !seen[sub.StudentID] {
			seen[sub.StudentID] = true
			studentIDs = append(studentIDs, sub.StudentID)
		}
	}
	usernames, err := h.store.StudentUsernames(studentIDs)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	f, err := report.ClassReportWorkbook(*class, usernames)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	defer f.Close()

	for _, id := range studentIDs {
		h.notify(r, model.Notification{
			Audience: model.AudienceStudent,
			OwnerID:  id,
			Type:     model.NotifyExport,
			Title:    fmt.Sprintf("Report exported for %s", class.ClassName),
		})
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.ClassReportFilename(*class)))
	if err := f.Write(w); err != nil {
		slog.Error("write workbook", "classCode", class.ClassCode, "error", err)
	}
}
