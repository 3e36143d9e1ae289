package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edumap/selserver/internal/metrics"
	"github.com/edumap/selserver/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Default sampling parameters applied when an Options field is zero.
const (
	defaultMaxTokens   = 1000
	defaultTemperature = 0.7
)

// Options configures a single gateway call.
type Options struct {
	MaxTokens   int
	Temperature float32
	Model       string // empty means the client's configured model
	System      string // optional system instructions
}

func (o Options) withDefaults(model string) Options {
	if o.MaxTokens == 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Temperature == 0 {
		o.Temperature = defaultTemperature
	}
	if o.Model == "" {
		o.Model = model
	}
	return o
}

// Client wraps an OpenAI-compatible chat-completion API. All failures
// (network, provider error, empty response) come back as errors; there
// is no retry or circuit breaking.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new gateway client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable before the server starts
// accepting requests.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// Generate sends a single user prompt and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return c.Chat(ctx, []model.ChatMessage{{Role: model.RoleUser, Content: prompt}}, opts)
}

// Chat sends an ordered role-tagged message list and returns the first
// content block of the reply.
func (c *Client) Chat(ctx context.Context, messages []model.ChatMessage, opts Options) (string, error) {
	opts = opts.withDefaults(c.model)

	var chatMsgs []openai.ChatCompletionMessage
	if opts.System != "" {
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.System,
		})
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == model.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    chatMsgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	metrics.ObserveAICall(time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return raw, nil
}
