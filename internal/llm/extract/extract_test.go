package extract

import (
	"strings"
	"testing"

	"github.com/edumap/selserver/internal/model"
)

func TestScenarioCleanJSON(t *testing.T) {
	raw := `{"situation": "Two classmates argue over a group project.", "question": "What would you do?"}`
	got := Scenario(raw)
	if got.Situation != "Two classmates argue over a group project." {
		t.Errorf("situation = %q", got.Situation)
	}
	if got.Question != "What would you do?" {
		t.Errorf("question = %q", got.Question)
	}
}

func TestScenarioJSONWithSurroundingProse(t *testing.T) {
	raw := "Sure! Here is the scenario:\n" +
		`{"situation": "A new student sits alone at lunch.", "question": "How would you respond?"}` +
		"\nLet me know if you need anything else."
	got := Scenario(raw)
	if got.Situation != "A new student sits alone at lunch." {
		t.Errorf("situation = %q", got.Situation)
	}
	if got.Question != "How would you respond?" {
		t.Errorf("question = %q", got.Question)
	}
}

func TestScenarioFieldRegexFallback(t *testing.T) {
	// No valid JSON object, but quoted fields are present.
	raw := `Situation: "Your friend forgot their homework." Question: "What do you say?"`
	got := Scenario(raw)
	if got.Situation != "Your friend forgot their homework." {
		t.Errorf("situation = %q", got.Situation)
	}
	if got.Question != "What do you say?" {
		t.Errorf("question = %q", got.Question)
	}
}

func TestScenarioLineScanFallback(t *testing.T) {
	raw := "situation: A teammate misses practice again\nquestion: How do you bring it up with them?"
	got := Scenario(raw)
	if got.Situation != "A teammate misses practice again" {
		t.Errorf("situation = %q", got.Situation)
	}
	if got.Question != "How do you bring it up with them?" {
		t.Errorf("question = %q", got.Question)
	}
}

func TestScenarioPlaceholders(t *testing.T) {
	got := Scenario("I am unable to help with that.")
	if got.Situation != "Could not generate a situation." {
		t.Errorf("situation placeholder = %q", got.Situation)
	}
	if got.Question != "Could not generate a question." {
		t.Errorf("question placeholder = %q", got.Question)
	}
}

func TestScenarioPartialPlaceholder(t *testing.T) {
	raw := `{"situation": "A disagreement breaks out during recess."}`
	got := Scenario(raw)
	if got.Situation != "A disagreement breaks out during recess." {
		t.Errorf("situation = %q", got.Situation)
	}
	if got.Question != "Could not generate a question." {
		t.Errorf("question = %q", got.Question)
	}
}

func TestStringFieldsReject(t *testing.T) {
	_, err := StringFields("nothing useful here", []string{"situation"}, Reject)
	if err == nil {
		t.Fatal("expected error for missing field under Reject")
	}
}

func validAnalysisJSON() string {
	score := `{"score": 4, "feedback": "ok", "strengths": ["s"], "improvements": ["i"]}`
	return `{
		"selfAwareness": ` + score + `,
		"selfManagement": ` + score + `,
		"socialAwareness": ` + score + `,
		"relationshipSkills": ` + score + `,
		"responsibleDecisionMaking": ` + score + `,
		"overallScore": 4,
		"generalFeedback": "solid answer",
		"suggestedIntervention": "none",
		"redFlags": [],
		"estimatedDepthLevel": "intermediate"
	}`
}

func TestAnalysisValid(t *testing.T) {
	result, err := Analysis("Here is my analysis:\n" + validAnalysisJSON())
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	for c, s := range result.CompetencyScores() {
		if s.Score < 1 || s.Score > 5 {
			t.Errorf("%s score %v outside [1,5]", c, s.Score)
		}
	}
	if result.OverallScore != 4 {
		t.Errorf("overallScore = %v, want 4", result.OverallScore)
	}
	if result.GeneralFeedback != "solid answer" {
		t.Errorf("generalFeedback = %q", result.GeneralFeedback)
	}
}

func TestAnalysisNoJSON(t *testing.T) {
	result, err := Analysis("I cannot score this response.")
	if err == nil {
		t.Fatal("expected error for output without JSON")
	}
	if result != nil {
		t.Errorf("result = %+v, want nil on failure", result)
	}
}

func TestAnalysisMalformedJSON(t *testing.T) {
	if _, err := Analysis(`{"selfAwareness": {"score": `); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestAnalysisScoreOutOfRange(t *testing.T) {
	raw := strings.Replace(validAnalysisJSON(), `"overallScore": 4`, `"overallScore": 7`, 1)
	result, err := Analysis(raw)
	if err == nil {
		t.Fatal("expected error for score outside [1,5]")
	}
	if result != nil {
		t.Error("partial result returned on validation failure")
	}
}

func TestAnalysisMissingCompetency(t *testing.T) {
	// A missing competency decodes to a zero score, which fails validation.
	raw := strings.Replace(validAnalysisJSON(),
		`"selfAwareness": {"score": 4, "feedback": "ok", "strengths": ["s"], "improvements": ["i"]},`, "", 1)
	if _, err := Analysis(raw); err == nil {
		t.Fatal("expected error for missing competency")
	}
}

func TestScenarioIdempotent(t *testing.T) {
	raw := `{"situation": "A quiet student is left out of a game.", "question": "What could you do?"}`
	want := model.Scenario{
		Situation: "A quiet student is left out of a game.",
		Question:  "What could you do?",
	}
	for i := 0; i < 3; i++ {
		if got := Scenario(raw); got != want {
			t.Fatalf("run %d: got %+v, want %+v", i, got, want)
		}
	}
}
