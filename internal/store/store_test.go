package store

import (
	"testing"
	"time"

	"github.com/edumap/selserver/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestClass(t *testing.T, s *Store, code, teacherID string) int64 {
	t.Helper()
	id, err := s.CreateClass(model.Class{
		ClassCode: code,
		ClassName: "class " + code,
		Subject:   "empathy",
		Situation: "situation for " + code,
		Question:  "question for " + code,
		CreatedBy: teacherID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insertTestClass: %v", err)
	}
	return id
}

func testAnalysis(overall float64) *model.AnalysisResult {
	score := model.CompetencyScore{Score: overall, Feedback: "fb"}
	return &model.AnalysisResult{
		SelfAwareness:             score,
		SelfManagement:            score,
		SocialAwareness:           score,
		RelationshipSkills:        score,
		ResponsibleDecisionMaking: score,
		OverallScore:              overall,
	}
}

func TestClassCRUD(t *testing.T) {
	s := newTestStore(t)

	// Missing code returns (nil, nil), not an error.
	c, err := s.GetClassByCode("NOPE")
	if err != nil {
		t.Fatalf("GetClassByCode: %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil for missing class, got %+v", c)
	}

	insertTestClass(t, s, "SEL2025-A", "111111111")
	c, err = s.GetClassByCode("SEL2025-A")
	if err != nil {
		t.Fatalf("GetClassByCode: %v", err)
	}
	if c == nil {
		t.Fatal("class not found after create")
	}
	if c.ClassName != "class SEL2025-A" {
		t.Errorf("className = %q", c.ClassName)
	}
	if len(c.Submissions) != 0 {
		t.Errorf("new class has %d submissions, want 0", len(c.Submissions))
	}

	// Duplicate code is rejected with the sentinel and nothing changes.
	_, err = s.CreateClass(model.Class{
		ClassCode: "SEL2025-A", ClassName: "other", Subject: "x",
		Situation: "s", Question: "q", CreatedBy: "222222222",
		CreatedAt: time.Now().UTC(),
	})
	if err != ErrDuplicateClassCode {
		t.Fatalf("expected ErrDuplicateClassCode, got %v", err)
	}
	c, _ = s.GetClassByCode("SEL2025-A")
	if c.ClassName != "class SEL2025-A" {
		t.Errorf("duplicate create mutated existing class: %q", c.ClassName)
	}
}

func TestListClassesByTeacher(t *testing.T) {
	s := newTestStore(t)
	insertTestClass(t, s, "A1", "111111111")
	insertTestClass(t, s, "A2", "111111111")
	insertTestClass(t, s, "B1", "222222222")

	mine, err := s.ListClassesByTeacher("111111111")
	if err != nil {
		t.Fatalf("ListClassesByTeacher: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("got %d classes, want 2", len(mine))
	}

	all, err := s.ListClasses()
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d classes, want 3", len(all))
	}
}

func TestAppendSubmission(t *testing.T) {
	s := newTestStore(t)
	classID := insertTestClass(t, s, "SEL2025-A", "111111111")

	if _, err := s.AppendSubmission(classID, model.Submission{
		StudentID:  "123456",
		AnswerText: "my exact answer",
		Analysis:   testAnalysis(4),
	}); err != nil {
		t.Fatalf("AppendSubmission: %v", err)
	}
	// Unscored attempt with NULL analysis.
	if _, err := s.AppendSubmission(classID, model.Submission{
		StudentID:  "123456",
		AnswerText: "second try",
	}); err != nil {
		t.Fatalf("AppendSubmission unscored: %v", err)
	}

	c, err := s.GetClassByCode("SEL2025-A")
	if err != nil {
		t.Fatalf("GetClassByCode: %v", err)
	}
	if len(c.Submissions) != 2 {
		t.Fatalf("got %d submissions, want 2", len(c.Submissions))
	}
	first := c.Submissions[0]
	if first.AnswerText != "my exact answer" {
		t.Errorf("answerText = %q, stored verbatim expected", first.AnswerText)
	}
	if first.Analysis == nil || first.Analysis.OverallScore != 4 {
		t.Errorf("analysis round trip failed: %+v", first.Analysis)
	}
	if c.Submissions[1].Analysis != nil {
		t.Errorf("unscored submission came back with analysis")
	}
	if c.SubmissionCount("123456") != 2 {
		t.Errorf("SubmissionCount = %d, want 2", c.SubmissionCount("123456"))
	}
}

func TestListClassesForStudent(t *testing.T) {
	s := newTestStore(t)
	id1 := insertTestClass(t, s, "A1", "111111111")
	insertTestClass(t, s, "A2", "111111111")

	if _, err := s.AppendSubmission(id1, model.Submission{StudentID: "123456", AnswerText: "hi"}); err != nil {
		t.Fatalf("AppendSubmission: %v", err)
	}

	done, err := s.ListClassesForStudent("123456")
	if err != nil {
		t.Fatalf("ListClassesForStudent: %v", err)
	}
	if len(done) != 1 || done[0].ClassCode != "A1" {
		t.Errorf("got %+v, want only A1", done)
	}
}

func TestDeleteClass(t *testing.T) {
	s := newTestStore(t)
	classID := insertTestClass(t, s, "SEL2025-A", "111111111")
	if _, err := s.AppendSubmission(classID, model.Submission{StudentID: "123456", AnswerText: "a"}); err != nil {
		t.Fatalf("AppendSubmission: %v", err)
	}

	ok, err := s.DeleteClass("SEL2025-A")
	if err != nil {
		t.Fatalf("DeleteClass: %v", err)
	}
	if !ok {
		t.Fatal("DeleteClass reported not found")
	}
	c, _ := s.GetClassByCode("SEL2025-A")
	if c != nil {
		t.Error("class still present after delete")
	}

	ok, err = s.DeleteClass("SEL2025-A")
	if err != nil {
		t.Fatalf("DeleteClass second call: %v", err)
	}
	if ok {
		t.Error("second delete should report not found")
	}
}

func TestDeleteSubmissions(t *testing.T) {
	s := newTestStore(t)
	classID := insertTestClass(t, s, "SEL2025-A", "111111111")
	s.AppendSubmission(classID, model.Submission{StudentID: "123456", AnswerText: "a"})
	s.AppendSubmission(classID, model.Submission{StudentID: "123456", AnswerText: "b"})
	s.AppendSubmission(classID, model.Submission{StudentID: "654321", AnswerText: "c"})

	n, err := s.DeleteSubmissions(classID, "123456")
	if err != nil {
		t.Fatalf("DeleteSubmissions: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	c, _ := s.GetClassByCode("SEL2025-A")
	if len(c.Submissions) != 1 || c.Submissions[0].StudentID != "654321" {
		t.Errorf("other student's submissions affected: %+v", c.Submissions)
	}
}

func TestTeacherAccounts(t *testing.T) {
	s := newTestStore(t)

	teacher := model.Teacher{
		TeacherID:    "123456789",
		Username:     "dana",
		Email:        "dana@school.test",
		PasswordHash: "hash1",
		Subject:      "empathy",
	}
	if _, err := s.CreateTeacher(teacher); err != nil {
		t.Fatalf("CreateTeacher: %v", err)
	}

	got, err := s.GetTeacherByID("123456789")
	if err != nil {
		t.Fatalf("GetTeacherByID: %v", err)
	}
	if got == nil || got.Username != "dana" {
		t.Fatalf("got %+v", got)
	}

	byEmail, err := s.GetTeacherByEmail("dana@school.test")
	if err != nil {
		t.Fatalf("GetTeacherByEmail: %v", err)
	}
	if byEmail == nil || byEmail.TeacherID != "123456789" {
		t.Fatalf("got %+v", byEmail)
	}

	// Duplicate ID and duplicate email map to distinct sentinels.
	dup := teacher
	dup.Email = "other@school.test"
	if _, err := s.CreateTeacher(dup); err != ErrDuplicateID {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
	dup = teacher
	dup.TeacherID = "987654321"
	if _, err := s.CreateTeacher(dup); err != ErrDuplicateEmail {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}

	if err := s.UpdateTeacherPassword("dana@school.test", "hash2"); err != nil {
		t.Fatalf("UpdateTeacherPassword: %v", err)
	}
	got, _ = s.GetTeacherByEmail("dana@school.test")
	if got.PasswordHash != "hash2" {
		t.Errorf("password hash not updated: %q", got.PasswordHash)
	}

	missing, err := s.GetTeacherByID("000000000")
	if err != nil || missing != nil {
		t.Errorf("missing teacher: got %+v, %v", missing, err)
	}
}

func TestStudentAccounts(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateStudent(model.Student{
		StudentID: "123456", Username: "avi", Email: "avi@school.test", PasswordHash: "h",
	}); err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	if _, err := s.CreateStudent(model.Student{
		StudentID: "654321", Username: "noa", Email: "noa@school.test", PasswordHash: "h",
	}); err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}

	got, err := s.GetStudentByID("123456")
	if err != nil || got == nil || got.Username != "avi" {
		t.Fatalf("GetStudentByID: %+v, %v", got, err)
	}

	names, err := s.StudentUsernames([]string{"123456", "654321", "000000"})
	if err != nil {
		t.Fatalf("StudentUsernames: %v", err)
	}
	if len(names) != 2 || names["123456"] != "avi" || names["654321"] != "noa" {
		t.Errorf("usernames = %v", names)
	}
}

func TestNotifications(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := s.CreateNotification(model.Notification{
			Audience: model.AudienceTeacher,
			OwnerID:  "123456789",
			Type:     model.NotifySuccess,
			Title:    "class created",
		}); err != nil {
			t.Fatalf("CreateNotification: %v", err)
		}
	}
	otherID, err := s.CreateNotification(model.Notification{
		Audience: model.AudienceStudent,
		OwnerID:  "123456",
		Type:     model.NotifySubmitted,
		Title:    "answer submitted",
	})
	if err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}

	list, err := s.ListNotifications(model.AudienceTeacher, "123456789")
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d notifications, want 3", len(list))
	}

	// Marking one read leaves the siblings untouched.
	ok, err := s.MarkNotificationRead(model.AudienceTeacher, "123456789", list[0].ID)
	if err != nil || !ok {
		t.Fatalf("MarkNotificationRead: %v, ok=%v", err, ok)
	}
	list, _ = s.ListNotifications(model.AudienceTeacher, "123456789")
	readCount := 0
	for _, n := range list {
		if n.Read {
			readCount++
		}
	}
	if readCount != 1 {
		t.Errorf("%d notifications read, want 1", readCount)
	}

	// The student's notification is out of reach for the teacher scope.
	ok, err = s.MarkNotificationRead(model.AudienceTeacher, "123456789", otherID)
	if err != nil {
		t.Fatalf("MarkNotificationRead cross-audience: %v", err)
	}
	if ok {
		t.Error("teacher scope marked a student notification")
	}

	n, err := s.MarkAllNotificationsRead(model.AudienceTeacher, "123456789")
	if err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}
	if n != 2 {
		t.Errorf("marked %d, want the 2 remaining unread", n)
	}
}

func TestResetCodes(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetResetCode(model.AudienceTeacher, "dana@school.test", "123456"); err != nil {
		t.Fatalf("SetResetCode: %v", err)
	}

	ok, err := s.CheckResetCode(model.AudienceTeacher, "dana@school.test", "123456")
	if err != nil || !ok {
		t.Fatalf("CheckResetCode: ok=%v, err=%v", ok, err)
	}

	// Wrong code, wrong audience, unknown email.
	if ok, _ := s.CheckResetCode(model.AudienceTeacher, "dana@school.test", "000000"); ok {
		t.Error("wrong code accepted")
	}
	if ok, _ := s.CheckResetCode(model.AudienceStudent, "dana@school.test", "123456"); ok {
		t.Error("code leaked across audiences")
	}
	if ok, _ := s.CheckResetCode(model.AudienceTeacher, "nobody@school.test", "123456"); ok {
		t.Error("code accepted for unknown email")
	}

	// A new code replaces the old one.
	if err := s.SetResetCode(model.AudienceTeacher, "dana@school.test", "654321"); err != nil {
		t.Fatalf("SetResetCode replace: %v", err)
	}
	if ok, _ := s.CheckResetCode(model.AudienceTeacher, "dana@school.test", "123456"); ok {
		t.Error("replaced code still valid")
	}

	// Consume removes the code.
	ok, err = s.ConsumeResetCode(model.AudienceTeacher, "dana@school.test", "654321")
	if err != nil || !ok {
		t.Fatalf("ConsumeResetCode: ok=%v, err=%v", ok, err)
	}
	if ok, _ := s.CheckResetCode(model.AudienceTeacher, "dana@school.test", "654321"); ok {
		t.Error("consumed code still valid")
	}
}

func TestResetCodeExpiry(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetResetCode(model.AudienceStudent, "avi@school.test", "123456"); err != nil {
		t.Fatalf("SetResetCode: %v", err)
	}
	// Age the code past its TTL.
	if _, err := s.db.Exec(
		`UPDATE reset_codes SET expires_at = ? WHERE email = ?`,
		time.Now().UTC().Add(-time.Minute), "avi@school.test",
	); err != nil {
		t.Fatalf("age code: %v", err)
	}

	if ok, err := s.CheckResetCode(model.AudienceStudent, "avi@school.test", "123456"); err != nil || ok {
		t.Errorf("expired code: ok=%v, err=%v, want rejected", ok, err)
	}
	if ok, _ := s.ConsumeResetCode(model.AudienceStudent, "avi@school.test", "123456"); ok {
		t.Error("expired code consumed successfully")
	}
}
