package vad

import (
	"testing"
	"time"
)

const testRate = 16000

// 100ms windows at 16kHz.
func speechWindow() []int16 {
	w := make([]int16, testRate/10)
	for i := range w {
		w[i] = 8000
	}
	return w
}

func silenceWindow() []int16 {
	return make([]int16, testRate/10)
}

func newTestBuffer() *Buffer {
	return NewBuffer(Config{
		SampleRate:      testRate,
		EnergyThreshold: 0.001,
		MinSilence:      500 * time.Millisecond,
		MinUtterance:    300 * time.Millisecond,
		MaxUtterance:    15 * time.Second,
	})
}

func TestBuffer_FlushAfterSilence(t *testing.T) {
	b := newTestBuffer()

	// 1.5s of speech, then 0.6s of silence with a 0.5s threshold.
	for i := 0; i < 15; i++ {
		if u := b.Push(speechWindow()); u != nil {
			t.Fatalf("unexpected flush during speech at window %d", i)
		}
	}

	var got *Utterance
	for i := 0; i < 6; i++ {
		if u := b.Push(silenceWindow()); u != nil {
			if got != nil {
				t.Fatal("flushed more than once")
			}
			got = u
		}
	}

	if got == nil {
		t.Fatal("expected exactly one flushed utterance")
	}
	if got.Seq != 1 {
		t.Errorf("expected seq 1, got %d", got.Seq)
	}
	want := 1500 * time.Millisecond
	if got.Duration != want {
		t.Errorf("expected ~1.5s utterance, got %v", got.Duration)
	}
	if len(got.Samples) != 15*testRate/10 {
		t.Errorf("expected %d samples, got %d", 15*testRate/10, len(got.Samples))
	}
}

func TestBuffer_SilenceAloneNeverFlushes(t *testing.T) {
	b := newTestBuffer()
	for i := 0; i < 50; i++ {
		if u := b.Push(silenceWindow()); u != nil {
			t.Fatal("silence without speech should never flush")
		}
	}
}

func TestBuffer_ShortUtteranceDiscarded(t *testing.T) {
	b := newTestBuffer()

	// 0.2s of speech is below the 0.3s floor.
	for i := 0; i < 2; i++ {
		b.Push(speechWindow())
	}
	for i := 0; i < 6; i++ {
		if u := b.Push(silenceWindow()); u != nil {
			t.Fatal("sub-floor utterance should be discarded silently")
		}
	}
	if b.Active() {
		t.Error("buffer should be inactive after discard")
	}

	// Discard must not burn a sequence number.
	for i := 0; i < 10; i++ {
		b.Push(speechWindow())
	}
	var got *Utterance
	for i := 0; i < 6 && got == nil; i++ {
		got = b.Push(silenceWindow())
	}
	if got == nil {
		t.Fatal("expected flush of the second utterance")
	}
	if got.Seq != 1 {
		t.Errorf("expected seq 1 after a discard, got %d", got.Seq)
	}
}

func TestBuffer_MaxDurationCap(t *testing.T) {
	b := NewBuffer(Config{
		SampleRate:      testRate,
		EnergyThreshold: 0.001,
		MinSilence:      500 * time.Millisecond,
		MinUtterance:    300 * time.Millisecond,
		MaxUtterance:    2 * time.Second,
	})

	var got *Utterance
	windows := 0
	for i := 0; i < 100 && got == nil; i++ {
		got = b.Push(speechWindow())
		windows++
	}
	if got == nil {
		t.Fatal("expected cap flush while speech keeps arriving")
	}
	if windows != 20 {
		t.Errorf("expected flush on window 20 (2s), got window %d", windows)
	}
	if got.Duration != 2*time.Second {
		t.Errorf("expected 2s utterance, got %v", got.Duration)
	}
}

func TestBuffer_SequenceIncrements(t *testing.T) {
	b := newTestBuffer()

	flush := func() *Utterance {
		for i := 0; i < 10; i++ {
			b.Push(speechWindow())
		}
		var got *Utterance
		for i := 0; i < 6 && got == nil; i++ {
			got = b.Push(silenceWindow())
		}
		return got
	}

	for want := uint64(1); want <= 3; want++ {
		u := flush()
		if u == nil {
			t.Fatalf("flush %d: expected utterance", want)
		}
		if u.Seq != want {
			t.Errorf("expected seq %d, got %d", want, u.Seq)
		}
	}
}

func TestBuffer_SpeechResetsSilenceTimer(t *testing.T) {
	b := newTestBuffer()
	for i := 0; i < 10; i++ {
		b.Push(speechWindow())
	}
	// 0.4s silence, below the 0.5s threshold, then speech resumes.
	for i := 0; i < 4; i++ {
		if u := b.Push(silenceWindow()); u != nil {
			t.Fatal("flushed before silence threshold")
		}
	}
	if u := b.Push(speechWindow()); u != nil {
		t.Fatal("speech resume should not flush")
	}
	// Full silence threshold now required again.
	for i := 0; i < 4; i++ {
		if u := b.Push(silenceWindow()); u != nil {
			t.Fatal("silence timer was not reset by resumed speech")
		}
	}
	if u := b.Push(silenceWindow()); u == nil {
		t.Fatal("expected flush after full silence threshold")
	}
}

func TestBuffer_Reset(t *testing.T) {
	b := newTestBuffer()
	for i := 0; i < 10; i++ {
		b.Push(speechWindow())
	}
	b.Reset()
	for i := 0; i < 6; i++ {
		if u := b.Push(silenceWindow()); u != nil {
			t.Fatal("reset buffer should not flush")
		}
	}
}
