package transcription

import "context"

// Transcriber converts one utterance of PCM audio to text. Calls may block
// for the full request duration; the session runs them through the dispatch
// pool.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error)
}
