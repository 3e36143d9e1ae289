package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edumap/selserver/internal/model"
)

// CreateClass inserts a class. Returns ErrDuplicateClassCode when the
// code is already taken; nothing is written in that case.
func (s *Store) CreateClass(c model.Class) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO classes (class_code, class_name, subject, situation, question, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ClassCode, c.ClassName, c.Subject, c.Situation, c.Question, c.CreatedBy, c.CreatedAt,
	)
	if uniqueViolation(err, "classes.class_code") {
		return 0, ErrDuplicateClassCode
	}
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetClassByCode returns the class with its submissions, or (nil, nil)
// when no class has that code.
func (s *Store) GetClassByCode(code string) (*model.Class, error) {
	var c model.Class
	err := s.db.QueryRow(
		`SELECT id, class_code, class_name, subject, situation, question, created_by, created_at
		 FROM classes WHERE class_code = ?`, code,
	).Scan(&c.ID, &c.ClassCode, &c.ClassName, &c.Subject, &c.Situation, &c.Question, &c.CreatedBy, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadSubmissions(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClassesByTeacher returns a teacher's classes, newest first, with
// submissions attached.
func (s *Store) ListClassesByTeacher(teacherID string) ([]model.Class, error) {
	return s.listClasses(`WHERE created_by = ? ORDER BY created_at DESC, id DESC`, teacherID)
}

// ListClasses returns every class with submissions attached.
func (s *Store) ListClasses() ([]model.Class, error) {
	return s.listClasses(`ORDER BY created_at DESC, id DESC`)
}

// ListClassesForStudent returns the classes the student has submitted
// to at least once.
func (s *Store) ListClassesForStudent(studentID string) ([]model.Class, error) {
	return s.listClasses(
		`WHERE id IN (SELECT DISTINCT class_id FROM submissions WHERE student_id = ?)
		 ORDER BY created_at DESC, id DESC`, studentID)
}

func (s *Store) listClasses(clause string, args ...any) ([]model.Class, error) {
	rows, err := s.db.Query(
		`SELECT id, class_code, class_name, subject, situation, question, created_by, created_at FROM classes `+clause,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var classes []model.Class
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.ClassCode, &c.ClassName, &c.Subject, &c.Situation, &c.Question, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range classes {
		if err := s.loadSubmissions(&classes[i]); err != nil {
			return nil, err
		}
	}
	return classes, nil
}

func (s *Store) loadSubmissions(c *model.Class) error {
	rows, err := s.db.Query(
		`SELECT id, class_id, student_id, answer_text, analysis_json, submitted_at
		 FROM submissions WHERE class_id = ? ORDER BY submitted_at, id`, c.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var sub model.Submission
		var analysisJSON sql.NullString
		if err := rows.Scan(&sub.ID, &sub.ClassID, &sub.StudentID, &sub.AnswerText, &analysisJSON, &sub.SubmittedAt); err != nil {
			return err
		}
		if analysisJSON.Valid {
			var result model.AnalysisResult
			if err := json.Unmarshal([]byte(analysisJSON.String), &result); err != nil {
				return fmt.Errorf("decode analysis for submission %d: %w", sub.ID, err)
			}
			sub.Analysis = &result
		}
		c.Submissions = append(c.Submissions, sub)
	}
	return rows.Err()
}

// AppendSubmission records one student answer. A nil analysis stores
// SQL NULL so the unscored submission is still kept.
func (s *Store) AppendSubmission(classID int64, sub model.Submission) (int64, error) {
	var analysisJSON any
	if sub.Analysis != nil {
		data, err := json.Marshal(sub.Analysis)
		if err != nil {
			return 0, fmt.Errorf("encode analysis: %w", err)
		}
		analysisJSON = string(data)
	}
	submittedAt := sub.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO submissions (class_id, student_id, answer_text, analysis_json, submitted_at)
		 VALUES (?, ?, ?, ?, ?)`,
		classID, sub.StudentID, sub.AnswerText, analysisJSON, submittedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteClass removes a class and its submissions. Returns false when
// no class had that code.
func (s *Store) DeleteClass(code string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(`SELECT id FROM classes WHERE class_code = ?`, code).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec(`DELETE FROM submissions WHERE class_id = ?`, id); err != nil {
		return false, err
	}
	if _, err := tx.Exec(`DELETE FROM classes WHERE id = ?`, id); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// DeleteSubmissions removes one student's submissions from a class.
// Returns how many rows were deleted.
func (s *Store) DeleteSubmissions(classID int64, studentID string) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM submissions WHERE class_id = ? AND student_id = ?`, classID, studentID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
