package synthesis

import (
	"context"
	"fmt"
	"io"

	"github.com/baoagent/voice-gateway/internal/audio"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Client struct {
	client openai.Client
	cfg    Config
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
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

func (c *Client) Synthesize(ctx context.Context, text string) ([]int16, int, error) {
	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(c.cfg.Model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(c.cfg.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat("pcm"),
	}
	if c.cfg.Speed > 0 && c.cfg.Speed != 1.0 {
		params.Speed = openai.Float(c.cfg.Speed)
	}

	resp, err := c.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("synthesize: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read synthesized audio: %w", err)
	}
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}

	return audio.PCMBytesToInt16(data), PCMSampleRate, nil
}
