package conversation

import (
	"sync"

	"github.com/baoagent/voice-gateway/internal/generation"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role Role
	Text string
}

const DefaultMaxTurns = 20

// History is the bounded rolling transcript of one connection. It keeps at
// most maxTurns turns, evicting oldest first, and always evicts down to a
// user-turn boundary so a user/assistant pair is never split at the cut.
// Appends come from pool workers while the admin API reads concurrently, so
// every access takes the mutex.
type History struct {
	mu       sync.Mutex
	maxTurns int
	turns    []Turn
}

func NewHistory(maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if maxTurns%2 != 0 {
		maxTurns++
	}
	return &History{maxTurns: maxTurns}
}

func (h *History) Append(role Role, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, Turn{Role: role, Text: text})
	h.truncate()
}

func (h *History) truncate() {
	for len(h.turns) > h.maxTurns {
		h.turns = h.turns[1:]
	}
	// Round to whole pairs: never lead with a dangling assistant turn.
	for len(h.turns) > 0 && h.turns[0].Role == RoleAssistant {
		h.turns = h.turns[1:]
	}
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Turns returns a copy; History stays read-only to everything except the
// adapter that owns it.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Messages converts the history for the language capability.
func (h *History) Messages() []generation.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]generation.Message, len(h.turns))
	for i, t := range h.turns {
		role := generation.RoleUser
		if t.Role == RoleAssistant {
			role = generation.RoleAssistant
		}
		out[i] = generation.Message{Role: role, Content: t.Text}
	}
	return out
}
