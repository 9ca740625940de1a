package generation

import "context"

// Generator turns a bounded conversation history into the assistant's next
// reply. Implementations may block for the full request duration; callers
// run them through the dispatch pool.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
