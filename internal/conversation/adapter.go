package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/baoagent/voice-gateway/internal/generation"
	"github.com/baoagent/voice-gateway/internal/shared"
)

// DefaultFallbackReply is spoken when the language capability fails; the
// caller always gets something to synthesize instead of a raw error.
const DefaultFallbackReply = "I'm sorry, I'm having trouble thinking right now. Could you say that again?"

// Adapter owns one connection's history and turns transcripts into replies.
// Not safe for concurrent use; the session serializes utterances, so only
// one Reply runs at a time.
type Adapter struct {
	gen      generation.Generator
	history  *History
	fallback string
	log      *slog.Logger
}

type AdapterConfig struct {
	MaxTurns      int
	FallbackReply string
}

func NewAdapter(gen generation.Generator, cfg AdapterConfig, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	fallback := cfg.FallbackReply
	if fallback == "" {
		fallback = DefaultFallbackReply
	}
	return &Adapter{
		gen:      gen,
		history:  NewHistory(cfg.MaxTurns),
		fallback: fallback,
		log:      log.With("component", "conversation"),
	}
}

// Reply appends the user turn, asks the language capability for the next
// assistant turn, and appends it. On capability failure it returns the
// fixed fallback text together with ErrGenerationUnavailable so the caller
// can still speak while recording the failure.
func (a *Adapter) Reply(ctx context.Context, userText string) (string, error) {
	a.history.Append(RoleUser, userText)

	reply, err := a.gen.Generate(ctx, a.history.Messages())
	if err != nil {
		a.log.Warn("generation failed, using fallback", "error", err)
		a.history.Append(RoleAssistant, a.fallback)
		return a.fallback, fmt.Errorf("%w: %v", shared.ErrGenerationUnavailable, err)
	}
	if reply == "" {
		a.log.Warn("generation returned empty reply, using fallback")
		a.history.Append(RoleAssistant, a.fallback)
		return a.fallback, fmt.Errorf("%w: empty reply", shared.ErrGenerationUnavailable)
	}

	a.history.Append(RoleAssistant, reply)
	return reply, nil
}

func (a *Adapter) History() []Turn {
	return a.history.Turns()
}
