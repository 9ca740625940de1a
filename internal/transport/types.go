package transport

import "encoding/json"

type MessageType string

// The four wire message kinds. Audio payloads travel base64-encoded inside
// JSON frames for compatibility with the browser capture client.
const (
	MessageTypeAudio         MessageType = "audio"
	MessageTypeTranscription MessageType = "transcription"
	MessageTypeAudioResponse MessageType = "audio_response"
	MessageTypeError         MessageType = "error"
)

// ClientMessage is the inbound envelope read off the socket.
type ClientMessage struct {
	Type       MessageType `json:"type"`
	Audio      string      `json:"audio,omitempty"`
	Format     string      `json:"format,omitempty"`
	SampleRate int         `json:"sample_rate,omitempty"`
}

// ServerMessage is the outbound envelope written to the socket.
type ServerMessage struct {
	Type       MessageType `json:"type"`
	Text       string      `json:"text,omitempty"`
	Audio      string      `json:"audio,omitempty"`
	SampleRate int         `json:"sample_rate,omitempty"`
	Seq        uint64      `json:"seq,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// InboundFrame is one decoded client audio frame: raw sample bytes plus the
// declared format tag, before PCM decoding.
type InboundFrame struct {
	Format     string
	Data       []byte
	SampleRate int
}

func (m ServerMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}
