package model

import (
	"fmt"
	"time"
)

// Competency is one of the five CASEL social-emotional skill categories.
type Competency string

const (
	SelfAwareness             Competency = "selfAwareness"
	SelfManagement            Competency = "selfManagement"
	SocialAwareness           Competency = "socialAwareness"
	RelationshipSkills        Competency = "relationshipSkills"
	ResponsibleDecisionMaking Competency = "responsibleDecisionMaking"
)

// Competencies returns the five CASEL competencies in rubric order.
func Competencies() []Competency {
	return []Competency{
		SelfAwareness,
		SelfManagement,
		SocialAwareness,
		RelationshipSkills,
		ResponsibleDecisionMaking,
	}
}

// Label returns the human-readable competency name used in reports.
func (c Competency) Label() string {
	switch c {
	case SelfAwareness:
		return "Self-Awareness"
	case SelfManagement:
		return "Self-Management"
	case SocialAwareness:
		return "Social Awareness"
	case RelationshipSkills:
		return "Relationship Skills"
	case ResponsibleDecisionMaking:
		return "Responsible Decision-Making"
	}
	return string(c)
}

// CompetencyScore holds the scored assessment of a single competency.
type CompetencyScore struct {
	Score        float64  `json:"score"`
	Feedback     string   `json:"feedback,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
}

// AnalysisResult is the structured scoring of one student answer across
// the CASEL 5 rubric. It is produced by a single model call and never
// updated in place.
type AnalysisResult struct {
	SelfAwareness             CompetencyScore `json:"selfAwareness"`
	SelfManagement            CompetencyScore `json:"selfManagement"`
	SocialAwareness           CompetencyScore `json:"socialAwareness"`
	RelationshipSkills        CompetencyScore `json:"relationshipSkills"`
	ResponsibleDecisionMaking CompetencyScore `json:"responsibleDecisionMaking"`
	OverallScore              float64         `json:"overallScore"`
	GeneralFeedback           string          `json:"generalFeedback,omitempty"`
	SuggestedIntervention     string          `json:"suggestedIntervention,omitempty"`
	RedFlags                  []string        `json:"redFlags,omitempty"`
	EstimatedDepthLevel       string          `json:"estimatedDepthLevel,omitempty"`
}

// CompetencyScores returns the per-competency scores keyed by competency.
func (a *AnalysisResult) CompetencyScores() map[Competency]CompetencyScore {
	return map[Competency]CompetencyScore{
		SelfAwareness:             a.SelfAwareness,
		SelfManagement:            a.SelfManagement,
		SocialAwareness:           a.SocialAwareness,
		RelationshipSkills:        a.RelationshipSkills,
		ResponsibleDecisionMaking: a.ResponsibleDecisionMaking,
	}
}

// Validate checks that every competency score and the overall score are
// on the 1-5 scale. A result failing validation must be discarded, not
// stored partially.
func (a *AnalysisResult) Validate() error {
	scores := a.CompetencyScores()
	for _, c := range Competencies() {
		s := scores[c]
		if s.Score < 1 || s.Score > 5 {
			return fmt.Errorf("competency %s: score %.2f outside [1,5]", c, s.Score)
		}
	}
	if a.OverallScore < 1 || a.OverallScore > 5 {
		return fmt.Errorf("overall score %.2f outside [1,5]", a.OverallScore)
	}
	return nil
}

// Scenario is an AI-generated situation plus its open question.
type Scenario struct {
	Situation string `json:"situation"`
	Question  string `json:"question"`
}

// Submission is one student answer inside a class. Append-only: a
// student may submit several times and each attempt is kept.
type Submission struct {
	ID          int64           `json:"id"`
	ClassID     int64           `json:"-"`
	StudentID   string          `json:"studentId"`
	AnswerText  string          `json:"answerText"`
	Analysis    *AnalysisResult `json:"analysisResult"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

// Class is a teacher-created assessment class. Situation and question
// are fixed at creation time; regenerating produces a new class.
type Class struct {
	ID          int64        `json:"-"`
	ClassCode   string       `json:"classCode"`
	ClassName   string       `json:"className"`
	Subject     string       `json:"subject"`
	Situation   string       `json:"situation"`
	Question    string       `json:"question"`
	CreatedBy   string       `json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	Submissions []Submission `json:"students"`
}

// SubmissionCount returns how many times the given student submitted in
// this class.
func (c *Class) SubmissionCount(studentID string) int {
	n := 0
	for _, s := range c.Submissions {
		if s.StudentID == studentID {
			n++
		}
	}
	return n
}

// Teacher is a teacher account. TeacherID is the human-facing 9-digit
// identifier; passwords are stored as bcrypt hashes only.
type Teacher struct {
	ID           int64     `json:"-"`
	TeacherID    string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Subject      string    `json:"subject,omitempty"`
	ProfilePic   string    `json:"profilePic,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Student is a student account.
type Student struct {
	ID           int64     `json:"-"`
	StudentID    string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfilePic   string    `json:"profilePic,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Audience distinguishes teacher-facing from student-facing notifications.
type Audience string

const (
	AudienceTeacher Audience = "teacher"
	AudienceStudent Audience = "student"
)

// NotificationType is a closed-set tag on notifications. The allowed set
// depends on the audience.
type NotificationType string

const (
	NotifySuccess   NotificationType = "success"
	NotifyExam      NotificationType = "exam"
	NotifyMessage   NotificationType = "message"
	NotifySchedule  NotificationType = "schedule"
	NotifyWarning   NotificationType = "warning"
	NotifySubmitted NotificationType = "submitted"
	NotifyExport    NotificationType = "export"
)

var teacherNotificationTypes = map[NotificationType]bool{
	NotifySuccess:  true,
	NotifyExam:     true,
	NotifyMessage:  true,
	NotifySchedule: true,
	NotifyWarning:  true,
}

var studentNotificationTypes = map[NotificationType]bool{
	NotifySubmitted: true,
	NotifyExam:      true,
	NotifyExport:    true,
}

// ValidNotificationType reports whether the type is allowed for the audience.
func ValidNotificationType(aud Audience, t NotificationType) bool {
	switch aud {
	case AudienceTeacher:
		return teacherNotificationTypes[t]
	case AudienceStudent:
		return studentNotificationTypes[t]
	}
	return false
}

// Notification is owned by exactly one account and only ever mutated by
// flipping Read.
type Notification struct {
	ID        int64            `json:"id"`
	Audience  Audience         `json:"-"`
	OwnerID   string           `json:"ownerId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Content   string           `json:"content,omitempty"`
	Time      string           `json:"time"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// ChatRole is a chat message role on the AI provider wire.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a conversation sent to the AI gateway.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}
