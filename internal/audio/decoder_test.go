package audio

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/baoagent/voice-gateway/internal/shared"
)

func TestDecode_PCM16(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[0:], uint16(100))
	binary.LittleEndian.PutUint16(data[2:], uint16(65535)) // -1
	binary.LittleEndian.PutUint16(data[4:], uint16(32767))
	binary.LittleEndian.PutUint16(data[6:], uint16(32768)) // -32768

	samples, err := Decode(FormatPCM16, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int16{100, -1, 32767, -32768}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], samples[i])
		}
	}
}

func TestDecode_EmptyFormatDefaultsToPCM16(t *testing.T) {
	if _, err := Decode("", []byte{0, 0}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDecode_OddLength(t *testing.T) {
	_, err := Decode(FormatPCM16, []byte{1, 2, 3})
	if !errors.Is(err, shared.ErrMalformedFrame) {
		t.Errorf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecode_UnknownFormat(t *testing.T) {
	_, err := Decode("mp3", []byte{1, 2})
	if !errors.Is(err, shared.ErrMalformedFrame) {
		t.Errorf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	samples := make([]int16, 160)
	wav := EncodeWAV(samples, 16000)

	if len(wav) != 44+320 {
		t.Fatalf("expected 364 bytes, got %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", rate)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); size != 320 {
		t.Errorf("expected data size 320, got %d", size)
	}
}
