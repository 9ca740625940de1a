package generation

import (
	"context"

	"github.com/openai/openai-go"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// ToolSet lets the model call out to an external collaborator while
// generating. Invoke returns the tool result as a JSON string for the
// follow-up completion round.
type ToolSet interface {
	Definitions() []openai.ChatCompletionToolParam
	Invoke(ctx context.Context, name, arguments string) (string, error)
}

type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}
