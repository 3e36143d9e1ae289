package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edumap/selserver/internal/model"
)

// stubGateway returns an OpenAI-compatible chat completions server that
// replies to every request with the given content.
func stubGateway(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
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
		"generalFeedback": "good reflection"
	}`
}

func TestAnalyzeResponse(t *testing.T) {
	srv := stubGateway(t, "Here you go:\n"+validAnalysisJSON())
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	result, err := c.AnalyzeResponse(context.Background(), "situation", "question", "my answer")
	if err != nil {
		t.Fatalf("AnalyzeResponse: %v", err)
	}
	for comp, s := range result.CompetencyScores() {
		if s.Score < 1 || s.Score > 5 {
			t.Errorf("%s score %v outside [1,5]", comp, s.Score)
		}
	}
	if result.OverallScore != 4 {
		t.Errorf("overallScore = %v, want 4", result.OverallScore)
	}
}

func TestAnalyzeResponseUnscorableOutput(t *testing.T) {
	srv := stubGateway(t, "I cannot evaluate this answer.")
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	result, err := c.AnalyzeResponse(context.Background(), "situation", "question", "my answer")
	if err == nil {
		t.Fatal("expected error for unscorable model output")
	}
	if result != nil {
		t.Errorf("result = %+v, want nil on failure", result)
	}
}

func TestAnalyzeResponseGatewayDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	result, err := c.AnalyzeResponse(context.Background(), "s", "q", "a")
	if err == nil {
		t.Fatal("expected error when gateway fails")
	}
	if result != nil {
		t.Error("partial result returned on gateway failure")
	}
}

func TestGenerateScenario(t *testing.T) {
	srv := stubGateway(t, `{"situation": "Two friends disagree about plans.", "question": "How do you respond?"}`)
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	scenario, err := c.GenerateScenario(context.Background(), "friendship", 100, 0)
	if err != nil {
		t.Fatalf("GenerateScenario: %v", err)
	}
	if scenario.Situation != "Two friends disagree about plans." {
		t.Errorf("situation = %q", scenario.Situation)
	}
	if scenario.Question != "How do you respond?" {
		t.Errorf("question = %q", scenario.Question)
	}
}

func TestGenerateScenarioFallsBackToPlaceholders(t *testing.T) {
	srv := stubGateway(t, "Sorry, no can do.")
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	scenario, err := c.GenerateScenario(context.Background(), "friendship", 100, 0)
	if err != nil {
		t.Fatalf("GenerateScenario: %v", err)
	}
	if scenario.Situation != "Could not generate a situation." {
		t.Errorf("situation = %q", scenario.Situation)
	}
	if scenario.Question != "Could not generate a question." {
		t.Errorf("question = %q", scenario.Question)
	}
}

func TestClassInsightRequiresAnalyses(t *testing.T) {
	c := New("http://unused.invalid", "test-key", "test-model")
	if _, err := c.ClassInsight(context.Background(), "s", "q", nil); err == nil {
		t.Fatal("expected error for empty analysis set")
	}
}

func TestChatPrependsSystemMessage(t *testing.T) {
	var gotMessages []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []map[string]any `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotMessages = req.Messages
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hi"}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	_, err := c.Chat(context.Background(), []model.ChatMessage{
		{Role: model.RoleUser, Content: "hello"},
	}, Options{System: "be helpful"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(gotMessages) != 2 {
		t.Fatalf("sent %d messages, want 2", len(gotMessages))
	}
	if gotMessages[0]["role"] != "system" || gotMessages[0]["content"] != "be helpful" {
		t.Errorf("first message = %v, want system instructions", gotMessages[0])
	}
	if gotMessages[1]["role"] != "user" {
		t.Errorf("second message role = %v, want user", gotMessages[1]["role"])
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.withDefaults("m1")
	if opts.MaxTokens != defaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", opts.MaxTokens, defaultMaxTokens)
	}
	if opts.Temperature != defaultTemperature {
		t.Errorf("Temperature = %v, want %v", opts.Temperature, defaultTemperature)
	}
	if opts.Model != "m1" {
		t.Errorf("Model = %q, want m1", opts.Model)
	}

	set := Options{MaxTokens: 5, Temperature: 0.1, Model: "m2"}.withDefaults("m1")
	if set.MaxTokens != 5 || set.Temperature != 0.1 || set.Model != "m2" {
		t.Errorf("explicit options overridden: %+v", set)
	}
}
