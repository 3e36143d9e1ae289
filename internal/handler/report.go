package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edumap/selserver/internal/model"
	"github.com/edumap/selserver/internal/report"
)

func (h *Handler) handleTeacherSummary(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClassesByTeacher(chi.URLParam(r, "teacherId"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report.TeacherDashboard(classes))
}

func (h *Handler) handleTeacherStudentReport(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClassesByTeacher(chi.URLParam(r, "teacherId"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	usernames, err := h.usernamesFor(classes)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	summaries := report.StudentSummaries(classes, usernames)
	if summaries == nil {
		summaries = []report.StudentSummary{}
	}
	respondJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleStudentProgress(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	classes, err := h.store.ListClassesForStudent(studentID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	var own []model.Submission
	for _, class := range classes {
		for _, sub := range class.Submissions {
			if sub.StudentID == studentID {
				own = append(own, sub)
			}
		}
	}

	series := report.CompetencySeries(classes, studentID)
	if series == nil {
		series = []report.ProgressPoint{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"averages": report.CompetencyAverages(own),
		"series":   series,
	})
}

func (h *Handler) usernamesFor(classes []model.Class) (map[string]string, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, class := range classes {
		for _, sub := range class.Submissions {
			if sub.StudentID != "" && !seen[sub.StudentID] {
				seen[sub.StudentID] = true
				ids = append(ids, sub.StudentID)
			}
		}
	}
	return h.store.StudentUsernames(ids)
}
