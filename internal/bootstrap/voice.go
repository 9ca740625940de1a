package bootstrap

import (
	"log/slog"

	"github.com/baoagent/voice-gateway/internal/dispatch"
	"github.com/baoagent/voice-gateway/internal/gateway"
	"github.com/baoagent/voice-gateway/internal/generation"
	"github.com/baoagent/voice-gateway/internal/scheduling"
	"github.com/baoagent/voice-gateway/internal/stream"
	"github.com/baoagent/voice-gateway/internal/synthesis"
	"github.com/baoagent/voice-gateway/internal/transcription"
	"github.com/baoagent/voice-gateway/internal/vad"
	"github.com/baoagent/voice-gateway/internal/voicesession"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func ProvideTranscriber(cfg *Config) transcription.Transcriber {
	return transcription.New(transcription.Config{
		APIKey:   cfg.OpenAIAPIKey,
		BaseURL:  cfg.OpenAIBaseURL,
		Model:    cfg.TranscriptionModel,
		Language: cfg.TranscriptionLanguage,
	})
}

func ProvideSchedulingClient(cfg *Config, redisClient *redis.Client, logger *slog.Logger) *scheduling.Client {
	if cfg.SchedulingURL == "" {
		return nil
	}
	return scheduling.NewClient(scheduling.Config{
		BaseURL:         cfg.SchedulingURL,
		AvailabilityTTL: cfg.AvailabilityTTL,
	}, redisClient, logger)
}

func ProvideGenerator(cfg *Config, schedClient *scheduling.Client, logger *slog.Logger) generation.Generator {
	var tools generation.ToolSet
	if schedClient != nil {
		tools = scheduling.NewTools(schedClient, logger)
	}
	return generation.New(generation.Config{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		Model:        cfg.GenerationModel,
		SystemPrompt: cfg.SystemPrompt,
	}, tools, logger)
}

func ProvideSynthesizer(cfg *Config) synthesis.Synthesizer {
	return synthesis.New(synthesis.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.SynthesisModel,
		Voice:   cfg.SynthesisVoice,
	})
}

func ProvideDispatchPool(cfg *Config, logger *slog.Logger) *dispatch.Pool {
	return dispatch.NewPool(dispatch.Config{
		Workers:     cfg.PoolWorkers,
		QueueDepth:  cfg.PoolQueueDepth,
		TaskTimeout: cfg.PoolTaskTimeout,
	}, logger)
}

func ProvideStreamer(logger *slog.Logger) *stream.Streamer {
	return stream.New(stream.Config{}, logger)
}

func ProvideVoiceSessionManager(
	cfg *Config,
	pool *dispatch.Pool,
	transcriber transcription.Transcriber,
	generator generation.Generator,
	synthesizer synthesis.Synthesizer,
	streamer *stream.Streamer,
	logger *slog.Logger,
) *voicesession.Manager {
	return voicesession.NewManager(voicesession.ManagerConfig{
		Pool:        pool,
		Transcriber: transcriber,
		Generator:   generator,
		Synthesizer: synthesizer,
		Streamer:    streamer,
		Session: voicesession.Config{
			VAD: vad.Config{
				SampleRate:      cfg.VADSampleRate,
				EnergyThreshold: cfg.VADEnergyThreshold,
				MinSilence:      cfg.VADMinSilence,
				MinUtterance:    cfg.VADMinUtterance,
				MaxUtterance:    cfg.VADMaxUtterance,
			},
			MaxTurns: cfg.MaxHistoryTurns,
		},
	}, logger)
}

func ProvideWSServer(manager *voicesession.Manager, logger *slog.Logger) *gateway.WSServer {
	return gateway.NewWSServer(manager, logger)
}

var VoiceModule = fx.Options(
	fx.Provide(
		ProvideTranscriber,
		ProvideSchedulingClient,
		ProvideGenerator,
		ProvideSynthesizer,
		ProvideDispatchPool,
		ProvideStreamer,
		ProvideVoiceSessionManager,
		ProvideWSServer,
	),
)
