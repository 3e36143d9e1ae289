package handler

import (
	"net/http"
	"sort"

	"github.com/edumap/selserver/internal/llm"
	"github.com/edumap/selserver/internal/llm/prompts"
	"github.com/edumap/selserver/internal/model"
)

func aiSuccess(w http.ResponseWriter, fields map[string]any) {
	payload := map[string]any{"success": true}
	for k, v := range fields {
		payload[k] = v
	}
	respondJSON(w, http.StatusOK, payload)
}

type askRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	reply, err := h.llm.Generate(r.Context(), req.Prompt, llm.Options{})
	if err != nil {
		h.aiFailure(w, r, err)
		return
	}
	aiSuccess(w, map[string]any{"response": reply})
}

type chatRequest struct {
	Messages []model.ChatMessage `json:"messages"`
	System   string              `json:"system,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	opts := llm.Options{System: req.System}
	reply, err := h.llm.Chat(r.Context(), req.Messages, opts)
	if err != nil {
		h.aiFailure(w, r, err)
		return
	}
	aiSuccess(w, map[string]any{"response": reply})
}

type generateSituationRequest struct {
	Topic            string `json:"topic"`
	MaxWords         int    `json:"maxWords"`
	PreviousAttempts int    `json:"previousAttempts"`
}

func (h *Handler) handleGenerateSituation(w http.ResponseWriter, r *http.Request) {
	var req generateSituationRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Topic == "" {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	if req.MaxWords <= 0 {
		req.MaxWords = 100
	}

	scenario, err := h.llm.GenerateScenario(r.Context(), req.Topic, req.MaxWords, req.PreviousAttempts)
	if err != nil {
		h.aiFailure(w, r, err)
		return
	}
	aiSuccess(w, map[string]any{
		"situation": scenario.Situation,
		"question":  scenario.Question,
	})
}

type analyzeResponseRequest struct {
	Situation string `json:"situation"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

func (h *Handler) handleAnalyzeResponse(w http.ResponseWriter, r *http.Request) {
	var req analyzeResponseRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	result, err := h.llm.AnalyzeResponse(r.Context(), req.Situation, req.Question, req.Answer)
	if err != nil {
		h.aiFailure(w, r, err)
		return
	}
	aiSuccess(w, map[string]any{"analysis": result})
}

type teacherChatRequest struct {
	TeacherID string              `json:"teacherId"`
	Messages  []model.ChatMessage `json:"messages"`
}

func (h *Handler) handleTeacherChatInsight(w http.ResponseWriter, r *http.Request) {
	var req teacherChatRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.TeacherID == "" || len(req.Messages) == 0 {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	snap, err := h.teacherSnapshot(req.TeacherID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	reply, err := h.llm.TeacherChat(r.Context(), snap, req.Messages)
	if err != nil {
		h.aiFailure(w, r, err)
		return
	}
	aiSuccess(w, map[string]any{"response": reply})
}

type studentChatRequest struct {
	StudentID string              `json:"studentId"`
	Messages  []model.ChatMessage `json:"messages"`
}

func (h *Handler) handleStudentChatInsight(w http.ResponseWriter, r *http.Request) {
	var req studentChatRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.StudentID == "" || len(req.Messages) == 0 {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	snap, err := h.studentSnapshot(req.StudentID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	reply, err := h.llm.StudentChat(r.Context(), snap, req.Messages)
	if err != nil {
		h.aiFailure(w, r, err)
		return
	}
	aiSuccess(w, map[string]any{"response": reply})
}

// teacherSnapshot loads everything the teacher chat assistant may
// reference: classes, submitted answers, and the student roster.
func (h *Handler) teacherSnapshot(teacherID string) (prompts.TeacherSnapshot, error) {
	var snap prompts.TeacherSnapshot

	teacher, err := h.store.GetTeacherByID(teacherID)
	if err != nil {
		return snap, err
	}
	if teacher != nil {
		snap.TeacherName = teacher.Username
	}

	classes, err := h.store.ListClassesByTeacher(teacherID)
	if err != nil {
		return snap, err
	}

	var studentIDs []string
	seen := make(map[string]bool)
	for _, class := range classes {
		for _, sub := range class.Submissions {
			if sub.StudentID != "" && !seen[sub.StudentID] {
				seen[sub.StudentID] = true
				studentIDs = append(studentIDs, sub.StudentID)
			}
		}
	}
	usernames, err := h.store.StudentUsernames(studentIDs)
	if err != nil {
		return snap, err
	}

	for _, class := range classes {
		snap.Classes = append(snap.Classes, classSummary(class))
		for _, sub := range class.Submissions {
			snap.Answers = append(snap.Answers, answerSummary(class, sub, usernames))
		}
	}
	sort.Strings(studentIDs)
	for _, id := range studentIDs {
		snap.Students = append(snap.Students, prompts.RosterEntry{ID: id, Username: usernames[id]})
	}
	return snap, nil
}

// studentSnapshot loads the student chat assistant's context: enrolled
// classes, the student's own answers, and teacher contact info.
func (h *Handler) studentSnapshot(studentID string) (prompts.StudentSnapshot, error) {
	var snap prompts.StudentSnapshot

	student, err := h.store.GetStudentByID(studentID)
	if err != nil {
		return snap, err
	}
	if student != nil {
		snap.StudentName = student.Username
	}

	classes, err := h.store.ListClassesForStudent(studentID)
	if err != nil {
		return snap, err
	}

	usernames := map[string]string{studentID: snap.StudentName}
	seenTeacher := make(map[string]bool)
	for _, class := range classes {
		snap.Classes = append(snap.Classes, classSummary(class))
		for _, sub := range class.Submissions {
			if sub.StudentID != studentID {
				continue
			}
			snap.Answers = append(snap.Answers, answerSummary(class, sub, usernames))
		}
		if !seenTeacher[class.CreatedBy] {
			seenTeacher[class.CreatedBy] = true
			teacher, err := h.store.GetTeacherByID(class.CreatedBy)
			if err != nil {
				return snap, err
			}
			if teacher != nil {
				snap.Teachers = append(snap.Teachers, prompts.TeacherInfo{
					Username: teacher.Username,
					Email:    teacher.Email,
				})
			}
		}
	}
	return snap, nil
}

func classSummary(class model.Class) prompts.ClassSummary {
	distinct := make(map[string]bool)
	for _, sub := range class.Submissions {
		if sub.StudentID != "" {
			distinct[sub.StudentID] = true
		}
	}
	return prompts.ClassSummary{
		ClassCode:   class.ClassCode,
		ClassName:   class.ClassName,
		Subject:     class.Subject,
		NumStudents: len(distinct),
	}
}

func answerSummary(class model.Class, sub model.Submission, usernames map[string]string) prompts.AnswerSummary {
	a := prompts.AnswerSummary{
		ClassCode:   class.ClassCode,
		ClassName:   class.ClassName,
		StudentID:   sub.StudentID,
		FullName:    usernames[sub.StudentID],
		AnswerText:  sub.AnswerText,
		SubmittedAt: sub.SubmittedAt,
	}
	if sub.Analysis != nil {
		score := sub.Analysis.OverallScore
		a.OverallScore = &score
	}
	return a
}
