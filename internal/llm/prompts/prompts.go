// Package prompts builds the task-specific prompts sent through the AI
// gateway. All builders are pure: they format text and do no I/O.
package prompts

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/edumap/selserver/internal/model"
)

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxAnswerRunes = 10000

// Scenario builds the prompt for generating a class situation and open
// question. previousAttempts is the count of earlier generations for the
// same topic; distinctness is only requested, never verified.
func Scenario(topic string, maxWords, previousAttempts int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Create a short, engaging scenario or situation related to the topic of %q ", topic))
	sb.WriteString("that would be suitable for assessing social-emotional skills according to the CASEL 5 framework.\n\n")
	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("1. The scenario should be EXACTLY %d words long - no more, no less.\n", maxWords))
	sb.WriteString("2. It should be followed by a single open-ended question that promotes critical thinking and social-emotional reflection.\n")
	sb.WriteString("3. The scenario and question should be appropriate for college students.\n")
	sb.WriteString("4. The scenario should be realistic and relatable.\n")
	sb.WriteString(fmt.Sprintf("5. Make it different from any previous scenarios (this is request #%d for this topic).\n\n", previousAttempts+1))
	sb.WriteString("Response format:\n")
	sb.WriteString(fmt.Sprintf("{\n  \"situation\": \"your %d-word scenario here\",\n  \"question\": \"your open-ended question here\"\n}\n\n", maxWords))
	sb.WriteString("Only provide the JSON response, nothing else.\n")
	return sb.String()
}

// Analysis builds the prompt for scoring a single student answer against
// the CASEL 5 rubric. The answer is sanitized before embedding.
func Analysis(situation, question, answer string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following student response to a social-emotional learning situation according to the CASEL 5 framework.\n\n")
	sb.WriteString("Situation: " + quote(situation) + "\n\n")
	sb.WriteString("Question: " + quote(question) + "\n\n")
	sb.WriteString("Student Response: " + quote(SanitizeAnswer(answer)) + "\n\n")
	sb.WriteString("Analyze the student's response across all five CASEL competencies:\n")
	sb.WriteString("1. Self-awareness\n2. Self-management\n3. Social awareness\n4. Relationship skills\n5. Responsible decision-making\n\n")
	sb.WriteString("Respond ONLY with a JSON object of this exact shape:\n")
	sb.WriteString(`{
  "selfAwareness": {"score": <1-5>, "feedback": "<2-3 sentences>", "strengths": ["..."], "improvements": ["..."]},
  "selfManagement": {"score": <1-5>, "feedback": "...", "strengths": ["..."], "improvements": ["..."]},
  "socialAwareness": {"score": <1-5>, "feedback": "...", "strengths": ["..."], "improvements": ["..."]},
  "relationshipSkills": {"score": <1-5>, "feedback": "...", "strengths": ["..."], "improvements": ["..."]},
  "responsibleDecisionMaking": {"score": <1-5>, "feedback": "...", "strengths": ["..."], "improvements": ["..."]},
  "overallScore": <1-5>,
  "generalFeedback": "<general feedback>",
  "suggestedIntervention": "<string>",
  "redFlags": ["<string>"],
  "estimatedDepthLevel": "<string>"
}`)
	sb.WriteString("\n")
	return sb.String()
}

// ClassInsight builds the prompt for a 3-5 sentence prose synthesis of a
// class's accumulated analyses. The reply is plain English, not JSON.
func ClassInsight(situation, question string, analyses []model.AnalysisResult) string {
	var summaries strings.Builder
	for i, a := range analyses {
		data, err := json.Marshal(a)
		if err != nil {
			continue
		}
		summaries.WriteString(fmt.Sprintf("Student %d: %s\n", i+1, data))
	}

	var sb strings.Builder
	sb.WriteString("Based on the following student analysis results, generate a general insight about the overall classroom performance in the 5 SEL domains.\n\n")
	sb.WriteString("Situation: " + quote(situation) + "\n\n")
	sb.WriteString("Question: " + quote(question) + "\n\n")
	sb.WriteString("Student Analyses:\n")
	sb.WriteString(summaries.String())
	sb.WriteString("\nPlease summarize:\n")
	sb.WriteString("- The class's overall strengths and weaknesses.\n")
	sb.WriteString("- Which competencies are strongest and weakest.\n")
	sb.WriteString("- Provide a short recommendation to the teacher.\n\n")
	sb.WriteString("Respond in plain English, 3-5 sentences only.\n")
	return sb.String()
}

// ClassSummary is the slimmed class record embedded in chat context.
type ClassSummary struct {
	ClassCode   string `json:"classCode"`
	ClassName   string `json:"className"`
	Subject     string `json:"subject"`
	NumStudents int    `json:"numStudents"`
}

// AnswerSummary is one submission as seen by the chat assistant.
type AnswerSummary struct {
	ClassCode    string    `json:"classCode"`
	ClassName    string    `json:"className"`
	StudentID    string    `json:"studentId"`
	FullName     string    `json:"fullName"`
	AnswerText   string    `json:"answerText"`
	OverallScore *float64  `json:"overallScore,omitempty"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// RosterEntry identifies one student on a teacher's roster.
type RosterEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// TeacherInfo is the teacher contact info shown to students.
type TeacherInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TeacherSnapshot captures everything the teacher-facing chat assistant
// may reference.
type TeacherSnapshot struct {
	TeacherName string
	Classes     []ClassSummary
	Answers     []AnswerSummary
	Students    []RosterEntry
}

// StudentSnapshot captures everything the student-facing chat assistant
// may reference.
type StudentSnapshot struct {
	StudentName string
	Classes     []ClassSummary
	Answers     []AnswerSummary
	Teachers    []TeacherInfo
}

// TeacherChatSystem builds the system instructions for teacher Q&A with
// the snapshot inlined as JSON.
func TeacherChatSystem(snap TeacherSnapshot) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are a helpful teaching assistant AI for the teacher %q.\n", snap.TeacherName))
	sb.WriteString("Use the following data to assist with their questions about their classes and students.\n\n")
	sb.WriteString("Classes:\n" + inlineJSON(snap.Classes) + "\n\n")
	sb.WriteString("Student Answers:\n" + inlineJSON(snap.Answers) + "\n\n")
	sb.WriteString("Students:\n" + inlineJSON(snap.Students) + "\n")
	return strings.TrimSpace(sb.String())
}

// StudentChatSystem builds the system instructions for student Q&A.
func StudentChatSystem(snap StudentSnapshot) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are a helpful and friendly teaching assistant AI helping the student %q understand their learning progress.\n\n", snap.StudentName))
	sb.WriteString("Use the data below to assist the student with any questions they might have about the classes they are enrolled in, the simulations they have submitted, and their teachers.\n\n")
	sb.WriteString("Classes:\n" + inlineJSON(snap.Classes) + "\n\n")
	sb.WriteString("Simulation Answers:\n" + inlineJSON(snap.Answers) + "\n\n")
	sb.WriteString("Teachers:\n" + inlineJSON(snap.Teachers) + "\n\n")
	sb.WriteString("Please respond to the student's questions based on this data. Be clear, concise, and supportive. If any data is missing, mention it politely.")
	return sb.String()
}

// SanitizeAnswer strips instruction-injection tags and truncates
// overlong answers before they are embedded in a prompt.
func SanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		runes = runes[:maxAnswerRunes]
		answer = string(runes) + "\n\n[Answer truncated due to length]"
	}

	return answer
}

func inlineJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func quote(s string) string {
	return `"` + s + `"`
}
