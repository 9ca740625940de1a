package transcription

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/baoagent/voice-gateway/internal/audio"
	"github.com/baoagent/voice-gateway/internal/shared"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Client struct {
	client openai.Client
	cfg    Config
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

func (c *Client) Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error) {
	wav := audio.EncodeWAV(samples, sampleRate)

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model: openai.AudioModel(c.cfg.Model),
	}
	if c.cfg.Language != "" {
		params.Language = openai.String(c.cfg.Language)
	}
	if c.cfg.Prompt != "" {
		params.Prompt = openai.String(c.cfg.Prompt)
	}

	result, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrTranscriptionFailed, err)
	}

	return strings.TrimSpace(result.Text), nil
}
