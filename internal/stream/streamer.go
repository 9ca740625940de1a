package stream

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/baoagent/voice-gateway/internal/audio"
	"github.com/baoagent/voice-gateway/internal/transport"
)

const (
	// DefaultFrameDuration is the wall-clock length of one outbound frame.
	DefaultFrameDuration = 100 * time.Millisecond
)

type Config struct {
	FrameDuration time.Duration
}

// Streamer chunks a synthesized reply into fixed-duration PCM frames and
// writes them to the connection in order. A reply belongs to the utterance
// sequence it answers; if a newer utterance has been accepted by the time
// streaming would start, the whole reply is discarded rather than played
// stale.
type Streamer struct {
	frameDuration time.Duration
	log           *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Streamer {
	if cfg.FrameDuration <= 0 {
		cfg.FrameDuration = DefaultFrameDuration
	}
	if log == nil {
		log = slog.Default()
	}
	return &Streamer{
		frameDuration: cfg.FrameDuration,
		log:           log.With("component", "stream"),
	}
}

// Stream writes pcm to conn as audio_response frames tagged with seq.
// latest reports the newest accepted utterance sequence; Stream checks it
// once up front and drops the entire reply if it is no longer current.
// Context cancellation is re-checked before every frame so a closing
// session stops mid-reply.
func (s *Streamer) Stream(ctx context.Context, conn transport.Connection, pcm []int16, sampleRate int, seq uint64, latest func() uint64) error {
	if len(pcm) == 0 {
		return nil
	}
	if cur := latest(); cur != seq {
		s.log.Debug("discarding stale reply", "seq", seq, "latest", cur)
		return nil
	}

	samplesPerFrame := int(time.Duration(sampleRate) * s.frameDuration / time.Second)
	if samplesPerFrame <= 0 {
		samplesPerFrame = len(pcm)
	}

	for _, frame := range Slice(pcm, samplesPerFrame) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := transport.ServerMessage{
			Type:       transport.MessageTypeAudioResponse,
			Audio:      base64.StdEncoding.EncodeToString(audio.Int16ToPCMBytes(frame)),
			SampleRate: sampleRate,
			Seq:        seq,
		}
		if err := conn.Send(ctx, msg); err != nil {
			return fmt.Errorf("send audio frame: %w", err)
		}
	}
	return nil
}

// Slice splits samples into chunks of at most size samples. The last chunk
// may be shorter; chunks alias the input.
func Slice(samples []int16, size int) [][]int16 {
	if size <= 0 || len(samples) == 0 {
		return nil
	}
	out := make([][]int16, 0, (len(samples)+size-1)/size)
	for start := 0; start < len(samples); start += size {
		end := start + size
		if end > len(samples) {
			end = len(samples)
		}
		out = append(out, samples[start:end])
	}
	return out
}
