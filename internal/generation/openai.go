package generation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// maxToolRounds bounds how many tool-call round trips one reply may take
// before the client gives up and reports the generation as unavailable.
const maxToolRounds = 4

type Client struct {
	client openai.Client
	cfg    Config
	tools  ToolSet
	log    *slog.Logger
}

func New(cfg Config, tools ToolSet, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		tools:  tools,
		log:    log.With("component", "generation"),
	}
}

func (c *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       c.cfg.Model,
		Messages:    c.buildMessages(messages),
		MaxTokens:   openai.Int(int64(c.cfg.MaxTokens)),
		Temperature: openai.Float(c.cfg.Temperature),
	}
	if c.tools != nil {
		params.Tools = c.tools.Definitions()
	}

	for round := 0; round < maxToolRounds; round++ {
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("chat completion returned no choices")
		}

		msg := completion.Choices[0].Message
		if len(msg.ToolCalls) == 0 || c.tools == nil {
			return msg.Content, nil
		}

		params.Messages = append(params.Messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			result, err := c.tools.Invoke(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				c.log.Warn("tool call failed", "tool", call.Function.Name, "error", err)
				result = fmt.Sprintf(`{"error": %q}`, err.Error())
			}
			params.Messages = append(params.Messages, openai.ToolMessage(result, call.ID))
		}
	}

	return "", fmt.Errorf("tool call rounds exceeded %d", maxToolRounds)
}

func (c *Client) buildMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if c.cfg.SystemPrompt != "" {
		out = append(out, openai.SystemMessage(c.cfg.SystemPrompt))
	}
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
