package synthesis

import "context"

// Synthesizer renders reply text as PCM audio. Returns the samples and
// their sample rate.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]int16, int, error)
}
