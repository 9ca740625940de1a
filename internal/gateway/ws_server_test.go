package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/baoagent/voice-gateway/internal/audio"
	"github.com/baoagent/voice-gateway/internal/dispatch"
	"github.com/baoagent/voice-gateway/internal/generation"
	"github.com/baoagent/voice-gateway/internal/stream"
	"github.com/baoagent/voice-gateway/internal/transport"
	"github.com/baoagent/voice-gateway/internal/vad"
	"github.com/baoagent/voice-gateway/internal/voicesession"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type echoTranscriber struct{}

func (echoTranscriber) Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error) {
	return "hello", nil
}

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, messages []generation.Message) (string, error) {
	return "hi back", nil
}

type echoSynthesizer struct{}

func (echoSynthesizer) Synthesize(ctx context.Context, text string) ([]int16, int, error) {
	return make([]int16, 2400), 24000, nil
}

func TestWSServer_VoiceRoundTrip(t *testing.T) {
	manager := voicesession.NewManager(voicesession.ManagerConfig{
		Pool:        dispatch.NewPool(dispatch.Config{Workers: 2, QueueDepth: 16}, nil),
		Transcriber: echoTranscriber{},
		Generator:   echoGenerator{},
		Synthesizer: echoSynthesizer{},
		Streamer:    stream.New(stream.Config{}, nil),
		Session: voicesession.Config{
			VAD: vad.Config{
				SampleRate:   16000,
				MinSilence:   200 * time.Millisecond,
				MinUtterance: 100 * time.Millisecond,
			},
		},
	}, nil)
	defer manager.Close()

	e := echo.New()
	e.GET("/ws/voice", NewWSServer(manager, nil).HandleConnection)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/voice"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	speech := make([]int16, 1600)
	for i := range speech {
		speech[i] = 3000
	}
	silence := make([]int16, 1600)

	sendAudio := func(samples []int16) {
		msg := transport.ClientMessage{
			Type:       transport.MessageTypeAudio,
			Audio:      base64.StdEncoding.EncodeToString(audio.Int16ToPCMBytes(samples)),
			Format:     audio.FormatPCM16,
			SampleRate: 16000,
		}
		if err := client.WriteJSON(msg); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		sendAudio(speech)
	}
	for i := 0; i < 3; i++ {
		sendAudio(silence)
	}

	var gotTranscript, gotAudio bool
	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	for !gotTranscript || !gotAudio {
		_, raw, err := client.ReadMessage()
		if err != nil {
			t.Fatalf("read (transcript=%v audio=%v): %v", gotTranscript, gotAudio, err)
		}
		var msg transport.ServerMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		switch msg.Type {
		case transport.MessageTypeTranscription:
			if msg.Text != "hello" {
				t.Errorf("transcript = %q", msg.Text)
			}
			gotTranscript = true
		case transport.MessageTypeAudioResponse:
			if msg.SampleRate != 24000 {
				t.Errorf("sample rate = %d", msg.SampleRate)
			}
			if _, err := base64.StdEncoding.DecodeString(msg.Audio); err != nil {
				t.Errorf("audio not base64: %v", err)
			}
			gotAudio = true
		case transport.MessageTypeError:
			t.Fatalf("unexpected error message: %s", msg.Message)
		}
	}
}

func TestWSServer_MalformedJSONGetsError(t *testing.T) {
	manager := voicesession.NewManager(voicesession.ManagerConfig{
		Pool:        dispatch.NewPool(dispatch.Config{Workers: 1, QueueDepth: 4}, nil),
		Transcriber: echoTranscriber{},
		Generator:   echoGenerator{},
		Synthesizer: echoSynthesizer{},
		Streamer:    stream.New(stream.Config{}, nil),
	}, nil)
	defer manager.Close()

	e := echo.New()
	e.GET("/ws/voice", NewWSServer(manager, nil).HandleConnection)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/voice"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if err := client.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg transport.ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != transport.MessageTypeError {
		t.Errorf("expected error message, got %q", msg.Type)
	}

	// Connection stays usable after a malformed message.
	ping := transport.ClientMessage{Type: transport.MessageTypeAudio, Audio: "", Format: audio.FormatPCM16}
	if err := client.WriteJSON(ping); err != nil {
		t.Errorf("connection should still accept writes: %v", err)
	}
}

func TestWSServer_DisconnectRemovesSession(t *testing.T) {
	manager := voicesession.NewManager(voicesession.ManagerConfig{
		Pool:        dispatch.NewPool(dispatch.Config{Workers: 1, QueueDepth: 4}, nil),
		Transcriber: echoTranscriber{},
		Generator:   echoGenerator{},
		Synthesizer: echoSynthesizer{},
		Streamer:    stream.New(stream.Config{}, nil),
	}, nil)
	defer manager.Close()

	e := echo.New()
	e.GET("/ws/voice", NewWSServer(manager, nil).HandleConnection)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/voice"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for manager.SessionCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if manager.SessionCount() != 1 {
		t.Fatalf("session count = %d after connect", manager.SessionCount())
	}

	client.Close()

	deadline = time.Now().Add(2 * time.Second)
	for manager.SessionCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if manager.SessionCount() != 0 {
		t.Errorf("session count = %d after disconnect", manager.SessionCount())
	}
}
