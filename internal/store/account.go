package store

import (
	"database/sql"
	"time"

	"github.com/edumap/selserver/internal/model"
)

// CreateTeacher inserts a teacher account. Returns ErrDuplicateID or
// ErrDuplicateEmail on constraint violations.
func (s *Store) CreateTeacher(t model.Teacher) (int64, error) {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO teachers (teacher_id, username, email, password_hash, subject, profile_pic, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.TeacherID, t.Username, t.Email, t.PasswordHash, t.Subject, t.ProfilePic, createdAt,
	)
	if uniqueViolation(err, "teachers.teacher_id") {
		return 0, ErrDuplicateID
	}
	if uniqueViolation(err, "teachers.email") {
		return 0, ErrDuplicateEmail
	}
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTeacherByID returns the teacher with the given public ID, or
// (nil, nil) when none exists.
func (s *Store) GetTeacherByID(teacherID string) (*model.Teacher, error) {
	return s.getTeacher(`teacher_id = ?`, teacherID)
}

// GetTeacherByEmail returns the teacher with the given email, or
// (nil, nil) when none exists.
func (s *Store) GetTeacherByEmail(email string) (*model.Teacher, error) {
	return s.getTeacher(`email = ?`, email)
}

func (s *Store) getTeacher(clause string, arg any) (*model.Teacher, error) {
	var t model.Teacher
	err := s.db.QueryRow(
		`SELECT id, teacher_id, username, email, password_hash, subject, profile_pic, created_at
		 FROM teachers WHERE `+clause, arg,
	).Scan(&t.ID, &t.TeacherID, &t.Username, &t.Email, &t.PasswordHash, &t.Subject, &t.ProfilePic, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTeacherPassword replaces a teacher's password hash by email.
func (s *Store) UpdateTeacherPassword(email, passwordHash string) error {
	_, err := s.db.Exec(`UPDATE teachers SET password_hash = ? WHERE email = ?`, passwordHash, email)
	return err
}

// CreateStudent inserts a student account. Returns ErrDuplicateID or
// ErrDuplicateEmail on constraint violations.
func (s *Store) CreateStudent(st model.Student) (int64, error) {
	createdAt := st.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO students (student_id, username, email, password_hash, profile_pic, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		st.StudentID, st.Username, st.Email, st.PasswordHash, st.ProfilePic, createdAt,
	)
	if uniqueViolation(err, "students.student_id") {
		return 0, ErrDuplicateID
	}
	if uniqueViolation(err, "students.email") {
		return 0, ErrDuplicateEmail
	}
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetStudentByID returns the student with the given public ID, or
// (nil, nil) when none exists.
func (s *Store) GetStudentByID(studentID string) (*model.Student, error) {
	return s.getStudent(`student_id = ?`, studentID)
}

// GetStudentByEmail returns the student with the given email, or
// (nil, nil) when none exists.
func (s *Store) GetStudentByEmail(email string) (*model.Student, error) {
	return s.getStudent(`email = ?`, email)
}

func (s *Store) getStudent(clause string, arg any) (*model.Student, error) {
	var st model.Student
	err := s.db.QueryRow(
		`SELECT id, student_id, username, email, password_hash, profile_pic, created_at
		 FROM students WHERE `+clause, arg,
	).Scan(&st.ID, &st.StudentID, &st.Username, &st.Email, &st.PasswordHash, &st.ProfilePic, &st.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// UpdateStudentPassword replaces a student's password hash by email.
func (s *Store) UpdateStudentPassword(email, passwordHash string) error {
	_, err := s.db.Exec(`UPDATE students SET password_hash = ? WHERE email = ?`, passwordHash, email)
	return err
}

// StudentUsernames maps the given student IDs to usernames. IDs without
// an account are simply absent from the result.
func (s *Store) StudentUsernames(studentIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(studentIDs))
	if len(studentIDs) == 0 {
		return out, nil
	}
	query := `SELECT student_id, username FROM students WHERE student_id IN (?` +
		repeatPlaceholder(len(studentIDs)-1) + `)`
	args := make([]any, len(studentIDs))
	for i, id := range studentIDs {
		args[i] = id
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, err
		}
		out[id] = username
	}
	return out, rows.Err()
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
