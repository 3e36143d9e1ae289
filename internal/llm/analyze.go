package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edumap/selserver/internal/llm/extract"
	"github.com/edumap/selserver/internal/llm/prompts"
	"github.com/edumap/selserver/internal/model"
)

// GenerateScenario asks the model for a situation and open question on
// the given topic. Extraction never fails here: if the model reply is
// unusable the returned scenario carries placeholder text.
func (c *Client) GenerateScenario(ctx context.Context, topic string, maxWords, previousAttempts int) (model.Scenario, error) {
	prompt := prompts.Scenario(topic, maxWords, previousAttempts)
	raw, err := c.Generate(ctx, prompt, Options{MaxTokens: 800, Temperature: 0.7})
	if err != nil {
		return model.Scenario{}, fmt.Errorf("generate scenario: %w", err)
	}

	scenario := extract.Scenario(raw)
	if scenario.Situation == extract.PlaceholderFor("situation") {
		slog.Warn("scenario extraction fell back to placeholder", "topic", topic)
	}
	return scenario, nil
}

// AnalyzeResponse scores one student answer against the CASEL 5 rubric.
// This path fails closed: any gateway or extraction failure returns an
// error and no partial result.
func (c *Client) AnalyzeResponse(ctx context.Context, situation, question, answer string) (*model.AnalysisResult, error) {
	prompt := prompts.Analysis(situation, question, answer)
	raw, err := c.Generate(ctx, prompt, Options{MaxTokens: 1500, Temperature: 0.3})
	if err != nil {
		return nil, fmt.Errorf("analyze response: %w", err)
	}

	result, err := extract.Analysis(raw)
	if err != nil {
		return nil, fmt.Errorf("analyze response: %w", err)
	}
	return result, nil
}

// ClassInsight produces a short prose synthesis of a class's analyses.
func (c *Client) ClassInsight(ctx context.Context, situation, question string, analyses []model.AnalysisResult) (string, error) {
	if len(analyses) == 0 {
		return "", fmt.Errorf("no analyzed submissions to summarize")
	}
	prompt := prompts.ClassInsight(situation, question, analyses)
	raw, err := c.Generate(ctx, prompt, Options{MaxTokens: 1000, Temperature: 0.3})
	if err != nil {
		return "", fmt.Errorf("class insight: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// TeacherChat answers a teacher question grounded in their classes,
// submissions and roster.
func (c *Client) TeacherChat(ctx context.Context, snap prompts.TeacherSnapshot, history []model.ChatMessage) (string, error) {
	raw, err := c.Chat(ctx, history, Options{
		MaxTokens:   1800,
		Temperature: 0.5,
		System:      prompts.TeacherChatSystem(snap),
	})
	if err != nil {
		return "", fmt.Errorf("teacher chat: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// StudentChat answers a student question grounded in their enrollment
// and submission history.
func (c *Client) StudentChat(ctx context.Context, snap prompts.StudentSnapshot, history []model.ChatMessage) (string, error) {
	raw, err := c.Chat(ctx, history, Options{
		MaxTokens:   1800,
		Temperature: 0.5,
		System:      prompts.StudentChatSystem(snap),
	})
	if err != nil {
		return "", fmt.Errorf("student chat: %w", err)
	}
	return strings.TrimSpace(raw), nil
}
