package vad

import (
	"time"

	"github.com/baoagent/voice-gateway/internal/audio"
)

// Utterance is one complete flushed span of speech, ready for transcription.
// Seq increases monotonically per connection and is used downstream to
// suppress stale results.
type Utterance struct {
	Seq        uint64
	Samples    []int16
	SampleRate int
	Duration   time.Duration
}

type Config struct {
	SampleRate      int
	EnergyThreshold float64
	MinSilence      time.Duration
	MinUtterance    time.Duration
	MaxUtterance    time.Duration
}

const (
	DefaultSampleRate      = 16000
	DefaultEnergyThreshold = 0.0005
	DefaultMinSilence      = 500 * time.Millisecond
	DefaultMinUtterance    = 300 * time.Millisecond
	DefaultMaxUtterance    = 15 * time.Second
)

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.EnergyThreshold <= 0 {
		c.EnergyThreshold = DefaultEnergyThreshold
	}
	if c.MinSilence <= 0 {
		c.MinSilence = DefaultMinSilence
	}
	if c.MinUtterance <= 0 {
		c.MinUtterance = DefaultMinUtterance
	}
	if c.MaxUtterance <= 0 {
		c.MaxUtterance = DefaultMaxUtterance
	}
	return c
}

// Buffer accumulates speech samples and decides utterance boundaries from
// window energy. It is synchronous and cheap: Push never blocks and never
// dispatches work itself. Not safe for concurrent use; each buffer is owned
// by its session's read loop.
type Buffer struct {
	cfg     Config
	samples []int16
	active  bool
	silence time.Duration
	seq     uint64
}

func NewBuffer(cfg Config) *Buffer {
	return &Buffer{cfg: cfg.withDefaults()}
}

// Push feeds one window of PCM samples. It returns a flushed utterance when
// accumulated silence exceeds the configured threshold after an active span,
// or when the max-duration cap is hit; otherwise nil.
func (b *Buffer) Push(samples []int16) *Utterance {
	if len(samples) == 0 {
		return nil
	}

	window := b.windowDuration(len(samples))
	energy := audio.MeanSquare(samples)

	if energy > b.cfg.EnergyThreshold {
		b.active = true
		b.silence = 0
		b.samples = append(b.samples, samples...)

		if b.accumulated() >= b.cfg.MaxUtterance {
			return b.flush()
		}
		return nil
	}

	if !b.active {
		return nil
	}

	b.silence += window
	if b.silence >= b.cfg.MinSilence {
		return b.flush()
	}
	return nil
}

// SampleRate returns the rate the buffer expects pushed samples in.
func (b *Buffer) SampleRate() int {
	return b.cfg.SampleRate
}

// Active reports whether the buffer is inside a speech span.
func (b *Buffer) Active() bool {
	return b.active
}

// Reset drops any accumulated audio without emitting. Sequence numbers are
// preserved so later flushes still supersede earlier ones.
func (b *Buffer) Reset() {
	b.samples = nil
	b.active = false
	b.silence = 0
}

func (b *Buffer) flush() *Utterance {
	dur := b.accumulated()
	samples := b.samples
	b.Reset()

	// Shorter than the floor means noise, not speech. Discard silently.
	if dur < b.cfg.MinUtterance {
		return nil
	}

	b.seq++
	return &Utterance{
		Seq:        b.seq,
		Samples:    samples,
		SampleRate: b.cfg.SampleRate,
		Duration:   dur,
	}
}

func (b *Buffer) accumulated() time.Duration {
	return b.windowDuration(len(b.samples))
}

func (b *Buffer) windowDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(b.cfg.SampleRate)
}
