package handler

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/edumap/selserver/internal/model"
	"github.com/edumap/selserver/internal/store"
)

var teacherIDRe = regexp.MustCompile(`^\d{9}$`)

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func newResetCode() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

type registerRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Subject  string `json:"subject,omitempty"`
}

func (h *Handler) handleTeacherRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	if !teacherIDRe.MatchString(req.ID) {
		h.respondError(w, r, http.StatusBadRequest, "InvalidTeacherID")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	teacher := model.Teacher{
		TeacherID:    req.ID,
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		Subject:      req.Subject,
	}
	switch _, err := h.store.CreateTeacher(teacher); err {
	case nil:
	case store.ErrDuplicateID:
		h.respondError(w, r, http.StatusBadRequest, "DuplicateID")
		return
	case store.ErrDuplicateEmail:
		h.respondError(w, r, http.StatusBadRequest, "DuplicateEmail")
		return
	default:
		h.internalError(w, r, err)
		return
	}

	created, err := h.store.GetTeacherByID(req.ID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleStudentRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" || req.Username == "" || req.Email == "" || req.Password == "" {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	student := model.Student{
		StudentID:    req.ID,
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
	}
	switch _, err := h.store.CreateStudent(student); err {
	case nil:
	case store.ErrDuplicateID:
		h.respondError(w, r, http.StatusBadRequest, "DuplicateID")
		return
	case store.ErrDuplicateEmail:
		h.respondError(w, r, http.StatusBadRequest, "DuplicateEmail")
		return
	default:
		h.internalError(w, r, err)
		return
	}

	created, err := h.store.GetStudentByID(req.ID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleTeacherLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	teacher, err := h.store.GetTeacherByEmail(strings.ToLower(req.Email))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if teacher == nil || !checkPassword(teacher.PasswordHash, req.Password) {
		h.respondError(w, r, http.StatusUnauthorized, "InvalidCredentials")
		return
	}
	respondJSON(w, http.StatusOK, teacher)
}

func (h *Handler) handleStudentLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	student, err := h.store.GetStudentByEmail(strings.ToLower(req.Email))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if student == nil || !checkPassword(student.PasswordHash, req.Password) {
		h.respondError(w, r, http.StatusUnauthorized, "InvalidCredentials")
		return
	}
	respondJSON(w, http.StatusOK, student)
}

type emailRequest struct {
	Email string `json:"email"`
}

// forgotPassword generates a 6-digit code, stores it with its expiry,
// and emails it. exists reports whether the email has an account.
func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request, aud model.Audience, exists bool, email string) {
	if !exists {
		h.respondError(w, r, http.StatusNotFound, "EmailNotFound")
		return
	}

	code := newResetCode()
	if err := h.store.SetResetCode(aud, email, code); err != nil {
		h.internalError(w, r, err)
		return
	}
	if err := h.mail.SendVerificationCode(r.Context(), email, code); err != nil {
		slog.Error("send reset code", "email", email, "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	h.respondMessage(w, r, http.StatusOK, "ResetCodeSent")
}

func (h *Handler) handleTeacherForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(req.Email)
	teacher, err := h.store.GetTeacherByEmail(email)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.forgotPassword(w, r, model.AudienceTeacher, teacher != nil, email)
}

func (h *Handler) handleStudentForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(req.Email)
	student, err := h.store.GetStudentByEmail(email)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.forgotPassword(w, r, model.AudienceStudent, student != nil, email)
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *Handler) verifyCode(w http.ResponseWriter, r *http.Request, aud model.Audience) {
	var req verifyCodeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	ok, err := h.store.CheckResetCode(aud, strings.ToLower(req.Email), req.Code)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !ok {
		h.respondError(w, r, http.StatusBadRequest, "InvalidResetCode")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *Handler) handleTeacherVerifyCode(w http.ResponseWriter, r *http.Request) {
	h.verifyCode(w, r, model.AudienceTeacher)
}

func (h *Handler) handleStudentVerifyCode(w http.ResponseWriter, r *http.Request) {
	h.verifyCode(w, r, model.AudienceStudent)
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request, aud model.Audience, update func(email, hash string) error) {
	var req resetPasswordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.NewPassword == "" {
		h.respondError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	email := strings.ToLower(req.Email)
	ok, err := h.store.ConsumeResetCode(aud, email, req.Code)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !ok {
		h.respondError(w, r, http.StatusBadRequest, "InvalidResetCode")
		return
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if err := update(email, hash); err != nil {
		h.internalError(w, r, err)
		return
	}
	h.respondMessage(w, r, http.StatusOK, "PasswordReset")
}

func (h *Handler) handleTeacherResetPassword(w http.ResponseWriter, r *http.Request) {
	h.resetPassword(w, r, model.AudienceTeacher, h.store.UpdateTeacherPassword)
}

func (h *Handler) handleStudentResetPassword(w http.ResponseWriter, r *http.Request) {
	h.resetPassword(w, r, model.AudienceStudent, h.store.UpdateStudentPassword)
}
